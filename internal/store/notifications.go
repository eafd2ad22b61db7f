package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/api"
	"github.com/aawaaz/padosi-client/internal/models"
)

// Notifications owns the notification list, its pagination, and the unread
// counter. The counter is a denormalization of "count of notifications
// with is_read=false": local read/delete mutations adjust it by exactly
// one, bulk operations reset it in one step, and it never goes negative.
type Notifications struct {
	mu     sync.Mutex
	client *api.Client
	logger *zap.SugaredLogger

	items       []models.Notification
	unreadCount int
	pagination  models.Pagination

	loading bool
	lastErr string
}

// NewNotifications creates a notifications store.
func NewNotifications(client *api.Client, logger *zap.SugaredLogger) *Notifications {
	return &Notifications{
		client:     client,
		logger:     logger,
		pagination: models.Pagination{Page: 1, PerPage: 20},
	}
}

// FetchList loads a page of notifications, replacing the list, the unread
// counter, and the pagination cache with the server's response.
func (s *Notifications) FetchList(ctx context.Context, override map[string]string) error {
	s.begin()
	defer s.setLoading(false)

	s.mu.Lock()
	query := url.Values{}
	query.Set("page", strconv.Itoa(s.pagination.Page))
	query.Set("per_page", strconv.Itoa(s.pagination.PerPage))
	s.mu.Unlock()
	for k, v := range override {
		if v != "" {
			query.Set(k, v)
		}
	}

	env, err := s.client.Get(ctx, "/notifications", query)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to fetch notifications"))
		return err
	}

	var list []models.Notification
	if err := env.DecodeData(&list); err != nil {
		s.fail("Failed to fetch notifications")
		return err
	}

	s.mu.Lock()
	s.items = list
	if env.UnreadCount != nil {
		s.unreadCount = *env.UnreadCount
	}
	if env.Pagination != nil {
		s.pagination = *env.Pagination
	}
	s.mu.Unlock()
	return nil
}

// FetchUnreadCount refreshes the counter from the cheap poll endpoint,
// independent of the list fetch.
func (s *Notifications) FetchUnreadCount(ctx context.Context) error {
	env, err := s.client.Get(ctx, "/notifications/unread-count", nil)
	if err != nil {
		s.logger.Warnw("Failed to fetch unread count", "error", err)
		return err
	}

	var payload struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := env.DecodeData(&payload); err != nil {
		return err
	}

	s.mu.Lock()
	s.unreadCount = payload.UnreadCount
	s.mu.Unlock()
	return nil
}

// PollUnread refreshes the unread counter on the given interval until the
// context is cancelled. Poll failures are logged and the loop continues.
func (s *Notifications) PollUnread(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.FetchUnreadCount(ctx)
		}
	}
}

// MarkAsRead flips one notification to read. Idempotent: an already-read
// entry leaves the counter untouched after the single network call.
func (s *Notifications) MarkAsRead(ctx context.Context, id int64) error {
	if _, err := s.client.Patch(ctx, fmt.Sprintf("/notifications/%d/read", id), nil); err != nil {
		s.fail(api.ErrorMessage(err, "Failed to mark as read"))
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			if !s.items[i].IsRead {
				s.items[i].IsRead = true
				if s.unreadCount > 0 {
					s.unreadCount--
				}
			}
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// MarkAllAsRead flips every cached entry and zeroes the counter in one
// step, with no per-item decrements or intermediate state.
func (s *Notifications) MarkAllAsRead(ctx context.Context) error {
	if _, err := s.client.Patch(ctx, "/notifications/mark-all-read", nil); err != nil {
		s.fail(api.ErrorMessage(err, "Failed to mark all as read"))
		return err
	}

	s.mu.Lock()
	for i := range s.items {
		s.items[i].IsRead = true
	}
	s.unreadCount = 0
	s.mu.Unlock()
	return nil
}

// Delete removes a notification from the cache; the counter drops only
// when the removed entry was unread.
func (s *Notifications) Delete(ctx context.Context, id int64) error {
	if _, err := s.client.Delete(ctx, fmt.Sprintf("/notifications/%d", id)); err != nil {
		s.fail(api.ErrorMessage(err, "Failed to delete notification"))
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, n := range s.items {
		if n.ID == id {
			if !n.IsRead && s.unreadCount > 0 {
				s.unreadCount--
			}
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	s.mu.Unlock()
	return nil
}

// ClearAll empties the cache and zeroes the counter in one step.
func (s *Notifications) ClearAll(ctx context.Context) error {
	if _, err := s.client.Delete(ctx, "/notifications/clear-all"); err != nil {
		s.fail(api.ErrorMessage(err, "Failed to clear notifications"))
		return err
	}

	s.mu.Lock()
	s.items = nil
	s.unreadCount = 0
	s.mu.Unlock()
	return nil
}

// SetPage moves pagination to the given page.
func (s *Notifications) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Page = page
}

// Reset clears every cache the store owns. External reset hook invoked on
// session teardown.
func (s *Notifications) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.unreadCount = 0
	s.pagination = models.Pagination{Page: 1, PerPage: 20}
	s.lastErr = ""
}

// Items returns a snapshot of the cached notifications.
func (s *Notifications) Items() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.items...)
}

// UnreadCount returns the cached unread counter. Never negative.
func (s *Notifications) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

// HasUnread reports whether any unread notifications remain.
func (s *Notifications) HasUnread() bool {
	return s.UnreadCount() > 0
}

// Pagination returns the last server-provided pagination state.
func (s *Notifications) Pagination() models.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// Err returns the last operation's human-readable error.
func (s *Notifications) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Loading reports whether a list fetch is in flight.
func (s *Notifications) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Notifications) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Notifications) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Notifications) fail(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}
