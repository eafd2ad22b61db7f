package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/api"
	"github.com/aawaaz/padosi-client/internal/models"
)

// Complaints owns the complaint list cache, the single current-complaint
// detail cache, pagination and filter state, and the memoized lookup
// tables. Mutations that touch vote counts keep the list entry and the
// detail entry synchronized in one step: after any operation resolves,
// both copies of the same complaint carry identical counters.
//
// Two racing fetches on the same cache slot are not ordered: the response
// that resolves last overwrites the cache (documented last-writer-wins).
type Complaints struct {
	mu     sync.Mutex
	client *api.Client
	logger *zap.SugaredLogger

	items      []models.Complaint
	current    *models.Complaint
	pagination models.Pagination
	filters    map[string]string

	categories []models.LookupOption
	statuses   []models.LookupOption
	priorities []models.LookupOption

	loading bool
	lastErr string
}

// NewComplaints creates a complaints store.
func NewComplaints(client *api.Client, logger *zap.SugaredLogger) *Complaints {
	return &Complaints{
		client:     client,
		logger:     logger,
		pagination: models.Pagination{Page: 1, PerPage: 10},
		filters: map[string]string{
			"status":     "",
			"category":   "",
			"priority":   "",
			"search":     "",
			"sort_by":    "created_at",
			"sort_order": "desc",
		},
	}
}

// buildQuery merges pagination, filters, and overrides (overrides win) and
// prunes empty values so falsy filter fields never reach the backend.
func (s *Complaints) buildQuery(override map[string]string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := map[string]string{
		"page":     strconv.Itoa(s.pagination.Page),
		"per_page": strconv.Itoa(s.pagination.PerPage),
	}
	for k, v := range s.filters {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}

	query := url.Values{}
	for k, v := range merged {
		if v == "" {
			continue
		}
		// Only the pagination keys treat zero as unset; "0" is a valid
		// value for user-supplied filters like search.
		if v == "0" && (k == "page" || k == "per_page") {
			continue
		}
		query.Set(k, v)
	}
	return query
}

// FetchList loads a page of complaints and replaces the list cache and the
// pagination cache wholesale with the response.
func (s *Complaints) FetchList(ctx context.Context, override map[string]string) error {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Get(ctx, "/complaints", s.buildQuery(override))
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to fetch complaints"))
		return err
	}

	var list []models.Complaint
	if err := env.DecodeData(&list); err != nil {
		s.fail("Failed to fetch complaints")
		return err
	}

	s.mu.Lock()
	s.items = list
	if env.Pagination != nil {
		s.pagination = *env.Pagination
	}
	s.mu.Unlock()
	return nil
}

// FetchOne loads a single complaint and replaces the current-complaint
// cache wholesale.
func (s *Complaints) FetchOne(ctx context.Context, id int64) error {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Get(ctx, fmt.Sprintf("/complaints/%d", id), nil)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to fetch complaint"))
		return err
	}

	var complaint models.Complaint
	if err := env.DecodeData(&complaint); err != nil {
		s.fail("Failed to fetch complaint")
		return err
	}

	s.mu.Lock()
	s.current = &complaint
	s.mu.Unlock()
	return nil
}

// Create files a new complaint and prepends it to the list cache without
// re-fetching the list.
func (s *Complaints) Create(ctx context.Context, draft models.ComplaintDraft) (*models.Complaint, error) {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Post(ctx, "/complaints", draft)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to create complaint"))
		return nil, err
	}

	var complaint models.Complaint
	if err := env.DecodeData(&complaint); err != nil {
		s.fail("Failed to create complaint")
		return nil, err
	}

	s.mu.Lock()
	s.items = append([]models.Complaint{complaint}, s.items...)
	s.mu.Unlock()
	return &complaint, nil
}

// Update edits a complaint; on success the server's copy replaces the
// matching list entry and the current-complaint cache when ids match.
func (s *Complaints) Update(ctx context.Context, id int64, draft models.ComplaintDraft) error {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Put(ctx, fmt.Sprintf("/complaints/%d", id), draft)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to update complaint"))
		return err
	}
	return s.replaceFromResponse(env, id, "Failed to update complaint")
}

// UpdateStatus transitions a complaint's status; an optional resolution
// note travels alongside the status value. Both cached copies are replaced
// by the server's response.
func (s *Complaints) UpdateStatus(ctx context.Context, id int64, status, note string) error {
	s.begin()
	defer s.setLoading(false)

	body := map[string]string{"status": status}
	if note != "" {
		body["resolution_note"] = note
	}

	env, err := s.client.Patch(ctx, fmt.Sprintf("/complaints/%d/status", id), body)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to update status"))
		return err
	}
	return s.replaceFromResponse(env, id, "Failed to update status")
}

func (s *Complaints) replaceFromResponse(env *api.Envelope, id int64, failMsg string) error {
	var complaint models.Complaint
	if err := env.DecodeData(&complaint); err != nil {
		s.fail(failMsg)
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = complaint
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current = &complaint
	}
	s.mu.Unlock()
	return nil
}

// Delete removes a complaint. The list entry goes away, and the
// current-complaint cache is cleared when it holds the deleted id so the
// detail view never dangles.
func (s *Complaints) Delete(ctx context.Context, id int64) error {
	s.begin()
	defer s.setLoading(false)

	if _, err := s.client.Delete(ctx, fmt.Sprintf("/complaints/%d", id)); err != nil {
		s.fail(api.ErrorMessage(err, "Failed to delete complaint"))
		return err
	}

	s.mu.Lock()
	filtered := s.items[:0]
	for _, c := range s.items {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}
	s.items = filtered
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()
	return nil
}

// Vote casts or changes the caller's vote. The server's returned counters
// and the vote type are copied into both the list entry and the
// current-complaint entry in one step; a missing id in either cache is a
// silent no-op for that cache.
func (s *Complaints) Vote(ctx context.Context, id int64, voteType string, anonymous bool) error {
	env, err := s.client.Post(ctx, fmt.Sprintf("/complaints/%d/vote", id), map[string]any{
		"vote_type":    voteType,
		"is_anonymous": anonymous,
	})
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to vote"))
		return err
	}

	var counts models.VoteCounts
	if err := env.DecodeData(&counts); err != nil {
		s.fail("Failed to vote")
		return err
	}

	s.applyVote(id, counts, voteType)
	return nil
}

// RemoveVote withdraws the caller's vote; both caches get the server's
// counters and an empty user vote.
func (s *Complaints) RemoveVote(ctx context.Context, id int64) error {
	env, err := s.client.Delete(ctx, fmt.Sprintf("/complaints/%d/vote", id))
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to remove vote"))
		return err
	}

	var counts models.VoteCounts
	if err := env.DecodeData(&counts); err != nil {
		s.fail("Failed to remove vote")
		return err
	}

	s.applyVote(id, counts, "")
	return nil
}

// applyVote mirrors the server's vote counters into every cached copy of
// the complaint under one lock acquisition, so callers never observe the
// list and detail views disagreeing.
func (s *Complaints) applyVote(id int64, counts models.VoteCounts, userVote string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply := func(c *models.Complaint) {
		c.SupportCount = counts.SupportCount
		c.OpposeCount = counts.OpposeCount
		c.UserVote = userVote
	}
	for i := range s.items {
		if s.items[i].ID == id {
			apply(&s.items[i])
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		apply(s.current)
	}
}

// AddComment posts a comment. Only the current-complaint cache tracks
// comments: the new entry is prepended and the server-authoritative
// comments_count is bumped.
func (s *Complaints) AddComment(ctx context.Context, complaintID int64, text string, anonymous bool) (*models.Comment, error) {
	env, err := s.client.Post(ctx, fmt.Sprintf("/complaints/%d/comments", complaintID), map[string]any{
		"comment_text": text,
		"is_anonymous": anonymous,
	})
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to add comment"))
		return nil, err
	}

	var comment models.Comment
	if err := env.DecodeData(&comment); err != nil {
		s.fail("Failed to add comment")
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == complaintID {
		s.current.Comments = append([]models.Comment{comment}, s.current.Comments...)
		s.current.CommentsCount++
	}
	s.mu.Unlock()
	return &comment, nil
}

// DeleteComment removes a comment from the current-complaint cache and
// decrements comments_count, floored at zero.
func (s *Complaints) DeleteComment(ctx context.Context, commentID int64) error {
	if _, err := s.client.Delete(ctx, fmt.Sprintf("/comments/%d", commentID)); err != nil {
		s.fail(api.ErrorMessage(err, "Failed to delete comment"))
		return err
	}

	s.mu.Lock()
	if s.current != nil {
		kept := s.current.Comments[:0]
		for _, c := range s.current.Comments {
			if c.ID != commentID {
				kept = append(kept, c)
			}
		}
		s.current.Comments = kept
		if s.current.CommentsCount > 0 {
			s.current.CommentsCount--
		}
	}
	s.mu.Unlock()
	return nil
}

// LoadCategories fetches the category lookup table once per store
// lifetime; subsequent calls are cache hits.
func (s *Complaints) LoadCategories(ctx context.Context) ([]models.LookupOption, error) {
	return s.loadLookup(ctx, "/complaints/categories", &s.categories)
}

// LoadStatuses fetches the status lookup table once per store lifetime.
func (s *Complaints) LoadStatuses(ctx context.Context) ([]models.LookupOption, error) {
	return s.loadLookup(ctx, "/complaints/statuses", &s.statuses)
}

// LoadPriorities fetches the priority lookup table once per store lifetime.
func (s *Complaints) LoadPriorities(ctx context.Context) ([]models.LookupOption, error) {
	return s.loadLookup(ctx, "/complaints/priorities", &s.priorities)
}

func (s *Complaints) loadLookup(ctx context.Context, path string, slot *[]models.LookupOption) ([]models.LookupOption, error) {
	s.mu.Lock()
	if len(*slot) > 0 {
		cached := append([]models.LookupOption(nil), *slot...)
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	env, err := s.client.Get(ctx, path, nil)
	if err != nil {
		s.logger.Warnw("Failed to load lookup table", "path", path, "error", err)
		return nil, err
	}

	var options []models.LookupOption
	if err := env.DecodeData(&options); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(*slot) == 0 {
		*slot = options
	}
	result := append([]models.LookupOption(nil), *slot...)
	s.mu.Unlock()
	return result, nil
}

// SetFilters shallow-merges the patch into filter state and resets the
// page to 1 so the next fetch starts from the first page.
func (s *Complaints) SetFilters(patch map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range patch {
		s.filters[k] = v
	}
	s.pagination.Page = 1
}

// SetPage moves pagination to the given page.
func (s *Complaints) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Page = page
}

// ClearCurrent drops the current-complaint cache.
func (s *Complaints) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Reset clears every cache the store owns. External reset hook invoked on
// session teardown.
func (s *Complaints) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.current = nil
	s.pagination = models.Pagination{Page: 1, PerPage: 10}
	s.lastErr = ""
}

// Items returns a snapshot of the list cache.
func (s *Complaints) Items() []models.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Complaint(nil), s.items...)
}

// Current returns a copy of the current-complaint cache, nil when empty.
func (s *Complaints) Current() *models.Complaint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Pagination returns the last server-provided pagination state.
func (s *Complaints) Pagination() models.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// Filters returns a snapshot of the filter state.
func (s *Complaints) Filters() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]string, len(s.filters))
	for k, v := range s.filters {
		snapshot[k] = v
	}
	return snapshot
}

// OpenCount reports how many cached list entries are still actionable.
func (s *Complaints) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.items {
		if s.items[i].IsOpen() {
			count++
		}
	}
	return count
}

// Categories returns the cached category table (empty before LoadCategories).
func (s *Complaints) Categories() []models.LookupOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LookupOption(nil), s.categories...)
}

// Err returns the last operation's human-readable error.
func (s *Complaints) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Loading reports whether a list/detail operation is in flight.
func (s *Complaints) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Complaints) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Complaints) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Complaints) fail(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
