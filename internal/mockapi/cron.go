package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aawaaz/padosi-client/internal/models"
)

// handleCronEscalate handles POST /cron/escalate. Open or acknowledged
// complaints at or above the support threshold are promoted to escalated
// and their complainants notified. Idempotent: already-escalated
// complaints are skipped.
func (s *Server) handleCronEscalate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	escalated := 0
	for _, rec := range s.complaints {
		if rec.Status != models.StatusOpen && rec.Status != models.StatusAcknowledged {
			continue
		}
		support := 0
		for _, vt := range rec.votes {
			if vt == models.VoteSupport {
				support++
			}
		}
		if support < escalationThreshold {
			continue
		}
		rec.Status = models.StatusEscalated
		rec.UpdatedAt = now()
		s.notify(rec.complainantID, "Complaint escalated",
			"\""+rec.Title+"\" reached the support threshold and was escalated to the committee.",
			"escalation", &rec.ID)
		escalated++
	}
	s.mu.Unlock()

	s.logger.Infow("Cron escalation run", "escalated", escalated)
	respondData(w, http.StatusOK, map[string]int{"escalated": escalated})
}

// handleCronReminders handles POST /cron/reminders: one reminder
// notification per still-open complaint, sent to its complainant.
func (s *Server) handleCronReminders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sent := 0
	for _, rec := range s.complaints {
		if !rec.IsOpen() {
			continue
		}
		s.notify(rec.complainantID, "Complaint still open",
			"\""+rec.Title+"\" is still "+rec.Status+".", "reminder", &rec.ID)
		sent++
	}
	s.mu.Unlock()

	s.logger.Infow("Cron reminder run", "sent", sent)
	respondData(w, http.StatusOK, map[string]int{"reminders_sent": sent})
}

// handleCronCleanup handles POST /cron/cleanup?days=N: read notifications
// older than the cutoff are deleted.
func (s *Server) handleCronCleanup(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	s.mu.Lock()
	kept := s.notifications[:0]
	deleted := 0
	for _, rec := range s.notifications {
		created, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if rec.IsRead && err == nil && created.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.notifications = kept
	s.mu.Unlock()

	s.logger.Infow("Cron cleanup run", "deleted", deleted, "days", days)
	respondData(w, http.StatusOK, map[string]int{"deleted": deleted})
}
