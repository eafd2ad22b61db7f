// Package mockapi is an in-memory implementation of the Padosi backend
// contract the client stores depend on. It backs the local development
// server and the hermetic store test suites; the real backend stays the
// sole source of truth in production.
package mockapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/models"
)

// escalationThreshold is the support count at which the cron escalation
// task promotes an open complaint.
const escalationThreshold = 5

type userRecord struct {
	models.User
	passwordHash []byte
}

type complaintRecord struct {
	models.Complaint
	complainantID int64
	votes         map[int64]string // userID -> vote type
	comments      []models.Comment
	commentUsers  map[int64]int64 // commentID -> author userID
}

type notificationRecord struct {
	models.Notification
	userID int64
}

// Server holds the in-memory state behind the mock REST API.
type Server struct {
	mu         sync.Mutex
	logger     *zap.SugaredLogger
	jwtSecret  []byte
	cronSecret string
	metrics    *serverMetrics

	societies     map[int64]*models.Society
	users         map[int64]*userRecord
	usersByEmail  map[string]int64
	complaints    map[int64]*complaintRecord
	complaintIDs  []int64 // insertion order, newest listing reverses it
	notifications []*notificationRecord

	userSeq      int64
	complaintSeq int64
	commentSeq   int64
	notifSeq     int64
}

// New creates an empty mock backend. cronSecret guards the maintenance
// endpoints; an empty secret rejects every cron call.
func New(jwtSecret, cronSecret string, logger *zap.SugaredLogger) *Server {
	return &Server{
		logger:        logger,
		jwtSecret:     []byte(jwtSecret),
		cronSecret:    cronSecret,
		metrics:       newServerMetrics(),
		societies:     make(map[int64]*models.Society),
		users:         make(map[int64]*userRecord),
		usersByEmail:  make(map[string]int64),
		complaints:    make(map[int64]*complaintRecord),
		notifications: nil,
	}
}

// Seed installs the fixture society used by registration in development
// and tests.
func (s *Server) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.societies[1] = &models.Society{ID: 1, Name: "Green Meadows CHS", City: "Pune"}
}

// Router builds the HTTP handler for the mock API, with the same
// middleware chain and response conventions the production backend uses.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(StructuredLogger(s.logger.Desugar()))
	r.Use(s.metrics.middleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/profile", s.handleProfile)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/complaints", func(r chi.Router) {
			r.Get("/", s.handleListComplaints)
			r.Post("/", s.handleCreateComplaint)
			r.Get("/categories", s.handleCategories)
			r.Get("/statuses", s.handleStatuses)
			r.Get("/priorities", s.handlePriorities)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetComplaint)
				r.Put("/", s.handleUpdateComplaint)
				r.Delete("/", s.handleDeleteComplaint)
				r.Patch("/status", s.handleUpdateStatus)
				r.Post("/vote", s.handleVote)
				r.Delete("/vote", s.handleRemoveVote)
				r.Post("/comments", s.handleAddComment)
			})
		})
		r.Delete("/comments/{id}", s.handleDeleteComment)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Get("/unread-count", s.handleUnreadCount)
			r.Patch("/mark-all-read", s.handleMarkAllRead)
			r.Delete("/clear-all", s.handleClearAll)
			r.Patch("/{id}/read", s.handleMarkRead)
			r.Delete("/{id}", s.handleDeleteNotification)
		})
	})

	r.Route("/cron", func(r chi.Router) {
		r.Use(s.requireCronSecret)
		r.Post("/escalate", s.handleCronEscalate)
		r.Post("/reminders", s.handleCronReminders)
		r.Post("/cleanup", s.handleCronCleanup)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// complaintView materializes a complaint for the given viewer: vote
// counters from the vote map, the viewer's own vote, and (in detail views)
// the comment thread. Callers hold s.mu.
func (s *Server) complaintView(rec *complaintRecord, viewerID int64, detail bool) models.Complaint {
	c := rec.Complaint
	c.SupportCount, c.OpposeCount = 0, 0
	for _, vt := range rec.votes {
		switch vt {
		case models.VoteSupport:
			c.SupportCount++
		case models.VoteOppose:
			c.OpposeCount++
		}
	}
	c.UserVote = rec.votes[viewerID]
	c.CommentsCount = len(rec.comments)
	if detail {
		// Newest first, matching the backend's ordering.
		comments := make([]models.Comment, len(rec.comments))
		for i, cm := range rec.comments {
			comments[len(rec.comments)-1-i] = cm
		}
		c.Comments = comments
	} else {
		c.Comments = nil
	}
	return c
}

func (s *Server) notify(userID int64, title, message, notifType string, complaintID *int64) {
	s.notifSeq++
	s.notifications = append(s.notifications, &notificationRecord{
		Notification: models.Notification{
			ID:                 s.notifSeq,
			Title:              title,
			Message:            message,
			NotificationType:   notifType,
			RelatedComplaintID: complaintID,
			CreatedAt:          now(),
		},
		userID: userID,
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: success envelope with a data payload
func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, map[string]any{"success": true, "data": data})
}

// Helper: error envelope
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}

// paginate slices a list and produces the pagination object the client
// replaces its cache with.
func paginate[T any](items []T, page, perPage int) ([]T, models.Pagination) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	total := len(items)
	pages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return items[start:end], models.Pagination{Total: total, Pages: pages, Page: page, PerPage: perPage}
}
