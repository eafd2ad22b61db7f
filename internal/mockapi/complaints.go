package mockapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aawaaz/padosi-client/internal/models"
)

var (
	categoryOptions = []models.LookupOption{
		{Value: "noise", Label: "Noise"},
		{Value: "parking", Label: "Parking"},
		{Value: "maintenance", Label: "Maintenance"},
		{Value: "cleanliness", Label: "Cleanliness"},
		{Value: "security", Label: "Security"},
		{Value: "pets", Label: "Pets"},
		{Value: "other", Label: "Other"},
	}
	statusOptions = []models.LookupOption{
		{Value: models.StatusOpen, Label: "Open"},
		{Value: models.StatusAcknowledged, Label: "Acknowledged"},
		{Value: models.StatusInProgress, Label: "In Progress"},
		{Value: models.StatusEscalated, Label: "Escalated"},
		{Value: models.StatusResolved, Label: "Resolved"},
		{Value: models.StatusClosed, Label: "Closed"},
	}
	priorityOptions = []models.LookupOption{
		{Value: "low", Label: "Low"},
		{Value: "medium", Label: "Medium"},
		{Value: "high", Label: "High"},
		{Value: "urgent", Label: "Urgent"},
	}
)

func validStatus(status string) bool {
	for _, o := range statusOptions {
		if o.Value == status {
			return true
		}
	}
	return false
}

// handleListComplaints handles GET /complaints with filtering and
// pagination. Newest first.
func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	viewer := callerID(r)

	s.mu.Lock()
	var list []models.Complaint
	for i := len(s.complaintIDs) - 1; i >= 0; i-- {
		rec := s.complaints[s.complaintIDs[i]]
		if v := q.Get("status"); v != "" && rec.Status != v {
			continue
		}
		if v := q.Get("category"); v != "" && rec.Category != v {
			continue
		}
		if v := q.Get("priority"); v != "" && rec.Priority != v {
			continue
		}
		if v := q.Get("search"); v != "" {
			needle := strings.ToLower(v)
			if !strings.Contains(strings.ToLower(rec.Title), needle) &&
				!strings.Contains(strings.ToLower(rec.Description), needle) {
				continue
			}
		}
		if q.Get("my_complaints") == "true" && rec.complainantID != viewer {
			continue
		}
		list = append(list, s.complaintView(rec, viewer, false))
	}
	s.mu.Unlock()

	pageItems, pagination := paginate(list, page, perPage)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"data":       pageItems,
		"pagination": pagination,
	})
}

// handleGetComplaint handles GET /complaints/{id}
func (s *Server) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	view := s.complaintView(rec, callerID(r), true)
	s.mu.Unlock()

	respondData(w, http.StatusOK, view)
}

// handleCreateComplaint handles POST /complaints
func (s *Server) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var draft models.ComplaintDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if draft.Title == "" || draft.Category == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: title, category")
		return
	}
	if draft.Priority == "" {
		draft.Priority = "medium"
	}

	s.mu.Lock()
	user := s.users[callerID(r)]
	s.complaintSeq++
	rec := &complaintRecord{
		Complaint: models.Complaint{
			ID:          s.complaintSeq,
			Title:       draft.Title,
			Description: draft.Description,
			Category:    draft.Category,
			Status:      models.StatusOpen,
			Priority:    draft.Priority,
			IsAnonymous: draft.IsAnonymous,
			AccusedFlat: draft.AccusedFlat,
			Complainant: complainantRef(user, draft.IsAnonymous),
			CreatedAt:   now(),
			UpdatedAt:   now(),
		},
		complainantID: user.ID,
		votes:         make(map[int64]string),
		commentUsers:  make(map[int64]int64),
	}
	s.complaints[rec.ID] = rec
	s.complaintIDs = append(s.complaintIDs, rec.ID)
	view := s.complaintView(rec, user.ID, false)
	s.mu.Unlock()

	respondData(w, http.StatusCreated, view)
}

func complainantRef(user *userRecord, anonymous bool) *models.UserRef {
	if anonymous {
		return &models.UserRef{DisplayName: "Anonymous Resident", Wing: user.Wing}
	}
	return &models.UserRef{
		ID:          user.ID,
		DisplayName: user.FullName,
		FlatNumber:  user.FlatNumber,
		Wing:        user.Wing,
	}
}

// handleUpdateComplaint handles PUT /complaints/{id}
func (s *Server) handleUpdateComplaint(w http.ResponseWriter, r *http.Request) {
	var draft models.ComplaintDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	if rec.complainantID != viewer && !s.users[viewer].HasRole("secretary") {
		s.mu.Unlock()
		respondError(w, http.StatusForbidden, "You cannot edit this complaint")
		return
	}
	if draft.Title != "" {
		rec.Title = draft.Title
	}
	if draft.Description != "" {
		rec.Description = draft.Description
	}
	if draft.Category != "" {
		rec.Category = draft.Category
	}
	if draft.Priority != "" {
		rec.Priority = draft.Priority
	}
	rec.UpdatedAt = now()
	view := s.complaintView(rec, viewer, false)
	s.mu.Unlock()

	respondData(w, http.StatusOK, view)
}

// handleUpdateStatus handles PATCH /complaints/{id}/status
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status         string `json:"status"`
		ResolutionNote string `json:"resolution_note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validStatus(body.Status) {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}
	id := pathID(r, "id")

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	rec.Status = body.Status
	if body.ResolutionNote != "" {
		rec.ResolutionNote = body.ResolutionNote
	}
	rec.UpdatedAt = now()
	s.notify(rec.complainantID, "Complaint status updated",
		"Your complaint \""+rec.Title+"\" is now "+body.Status+".",
		"complaint", &rec.ID)
	view := s.complaintView(rec, callerID(r), false)
	s.mu.Unlock()

	respondData(w, http.StatusOK, view)
}

// handleDeleteComplaint handles DELETE /complaints/{id}
func (s *Server) handleDeleteComplaint(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	if rec.complainantID != viewer && !s.users[viewer].HasRole("secretary") {
		s.mu.Unlock()
		respondError(w, http.StatusForbidden, "You cannot delete this complaint")
		return
	}
	delete(s.complaints, id)
	for i, cid := range s.complaintIDs {
		if cid == id {
			s.complaintIDs = append(s.complaintIDs[:i], s.complaintIDs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Complaint deleted"})
}

// handleVote handles POST /complaints/{id}/vote. Casting again with a
// different type replaces the previous vote; the response carries the
// resulting counters.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VoteType    string `json:"vote_type"`
		IsAnonymous *bool  `json:"is_anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.VoteType != models.VoteSupport && body.VoteType != models.VoteOppose {
		respondError(w, http.StatusBadRequest, "vote_type must be support or oppose")
		return
	}
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	_, hadVote := rec.votes[viewer]
	rec.votes[viewer] = body.VoteType
	if !hadVote && rec.complainantID != viewer && body.VoteType == models.VoteSupport {
		s.notify(rec.complainantID, "New support for your complaint",
			"A resident supported \""+rec.Title+"\".", "vote", &rec.ID)
	}
	view := s.complaintView(rec, viewer, false)
	s.mu.Unlock()

	respondData(w, http.StatusOK, models.VoteCounts{
		VoteType:     body.VoteType,
		SupportCount: view.SupportCount,
		OpposeCount:  view.OpposeCount,
	})
}

// handleRemoveVote handles DELETE /complaints/{id}/vote
func (s *Server) handleRemoveVote(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	delete(rec.votes, viewer)
	view := s.complaintView(rec, viewer, false)
	s.mu.Unlock()

	respondData(w, http.StatusOK, models.VoteCounts{
		SupportCount: view.SupportCount,
		OpposeCount:  view.OpposeCount,
	})
}

// handleAddComment handles POST /complaints/{id}/comments
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CommentText string `json:"comment_text"`
		IsAnonymous bool   `json:"is_anonymous"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.CommentText) == "" {
		respondError(w, http.StatusBadRequest, "Comment text required")
		return
	}
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	rec, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusNotFound, "Complaint not found")
		return
	}
	user := s.users[viewer]
	s.commentSeq++
	comment := models.Comment{
		ID:          s.commentSeq,
		ComplaintID: id,
		CommentText: body.CommentText,
		IsAnonymous: body.IsAnonymous,
		User:        complainantRef(user, body.IsAnonymous),
		CreatedAt:   now(),
	}
	rec.comments = append(rec.comments, comment)
	rec.commentUsers[comment.ID] = viewer
	if rec.complainantID != viewer {
		s.notify(rec.complainantID, "New comment on your complaint",
			"Someone commented on \""+rec.Title+"\".", "comment", &rec.ID)
	}
	s.mu.Unlock()

	respondData(w, http.StatusCreated, comment)
}

// handleDeleteComment handles DELETE /comments/{id}
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	for _, rec := range s.complaints {
		author, ok := rec.commentUsers[id]
		if !ok {
			continue
		}
		if author != viewer && !s.users[viewer].HasRole("secretary") {
			s.mu.Unlock()
			respondError(w, http.StatusForbidden, "You cannot delete this comment")
			return
		}
		for i, c := range rec.comments {
			if c.ID == id {
				rec.comments = append(rec.comments[:i], rec.comments[i+1:]...)
				break
			}
		}
		delete(rec.commentUsers, id)
		s.mu.Unlock()
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Comment deleted"})
		return
	}
	s.mu.Unlock()
	respondError(w, http.StatusNotFound, "Comment not found")
}

// handleCategories handles GET /complaints/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, categoryOptions)
}

// handleStatuses handles GET /complaints/statuses
func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, statusOptions)
}

// handlePriorities handles GET /complaints/priorities
func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, priorityOptions)
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}
