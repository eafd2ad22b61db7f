package mockapi

import (
	"net/http"
	"strconv"

	"github.com/aawaaz/padosi-client/internal/models"
)

// handleListNotifications handles GET /notifications. The response carries
// the page, the pagination object, and the top-level unread_count the
// client's counter cache replaces itself with.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 20
	}
	unreadOnly := q.Get("unread_only") == "true"
	viewer := callerID(r)

	s.mu.Lock()
	var list []models.Notification
	unread := 0
	for i := len(s.notifications) - 1; i >= 0; i-- {
		rec := s.notifications[i]
		if rec.userID != viewer {
			continue
		}
		if !rec.IsRead {
			unread++
		}
		if unreadOnly && rec.IsRead {
			continue
		}
		list = append(list, rec.Notification)
	}
	s.mu.Unlock()

	pageItems, pagination := paginate(list, page, perPage)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"data":         pageItems,
		"unread_count": unread,
		"pagination":   pagination,
	})
}

// handleUnreadCount handles GET /notifications/unread-count
func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	viewer := callerID(r)

	s.mu.Lock()
	unread := 0
	for _, rec := range s.notifications {
		if rec.userID == viewer && !rec.IsRead {
			unread++
		}
	}
	s.mu.Unlock()

	respondData(w, http.StatusOK, map[string]int{"unread_count": unread})
}

// handleMarkRead handles PATCH /notifications/{id}/read. Idempotent.
func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	for _, rec := range s.notifications {
		if rec.ID != id || rec.userID != viewer {
			continue
		}
		if !rec.IsRead {
			rec.IsRead = true
			rec.ReadAt = now()
		}
		notif := rec.Notification
		s.mu.Unlock()
		respondData(w, http.StatusOK, notif)
		return
	}
	s.mu.Unlock()
	respondError(w, http.StatusNotFound, "Notification not found")
}

// handleMarkAllRead handles PATCH /notifications/mark-all-read
func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	viewer := callerID(r)

	s.mu.Lock()
	updated := 0
	for _, rec := range s.notifications {
		if rec.userID == viewer && !rec.IsRead {
			rec.IsRead = true
			rec.ReadAt = now()
			updated++
		}
	}
	s.mu.Unlock()

	respondData(w, http.StatusOK, map[string]int{"updated": updated})
}

// handleDeleteNotification handles DELETE /notifications/{id}
func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	viewer := callerID(r)

	s.mu.Lock()
	for i, rec := range s.notifications {
		if rec.ID == id && rec.userID == viewer {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			s.mu.Unlock()
			respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Notification deleted"})
			return
		}
	}
	s.mu.Unlock()
	respondError(w, http.StatusNotFound, "Notification not found")
}

// handleClearAll handles DELETE /notifications/clear-all
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	viewer := callerID(r)

	s.mu.Lock()
	kept := s.notifications[:0]
	deleted := 0
	for _, rec := range s.notifications {
		if rec.userID == viewer {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.notifications = kept
	s.mu.Unlock()

	respondData(w, http.StatusOK, map[string]int{"deleted": deleted})
}
