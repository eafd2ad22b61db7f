package mockapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aawaaz/padosi-client/internal/models"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

// handleRegister handles POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.FlatNumber == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields: email, password, full_name, flat_number")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	s.mu.Lock()
	society, ok := s.societies[req.SocietyID]
	if !ok {
		s.mu.Unlock()
		respondError(w, http.StatusBadRequest, "Society not found")
		return
	}
	email := strings.ToLower(req.Email)
	if _, exists := s.usersByEmail[email]; exists {
		s.mu.Unlock()
		respondError(w, http.StatusConflict, "Email already registered")
		return
	}

	s.userSeq++
	user := &userRecord{
		User: models.User{
			ID:         s.userSeq,
			Email:      email,
			FullName:   req.FullName,
			FlatNumber: req.FlatNumber,
			Wing:       req.Wing,
			SocietyID:  society.ID,
			Society:    society,
			Roles:      []string{"resident"},
			CreatedAt:  now(),
		},
		passwordHash: hash,
	}
	s.users[user.ID] = user
	s.usersByEmail[email] = user.ID
	s.notify(user.ID, "Welcome!",
		"Welcome to "+society.Name+". Start by exploring complaints in your society.",
		"system", nil)
	s.mu.Unlock()

	s.respondAuth(w, http.StatusCreated, &user.User, society)
}

// handleLogin handles POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	userID, ok := s.usersByEmail[strings.ToLower(req.Email)]
	var user *userRecord
	if ok {
		user = s.users[userID]
	}
	s.mu.Unlock()

	if user == nil || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	s.respondAuth(w, http.StatusOK, &user.User, user.Society)
}

func (s *Server) respondAuth(w http.ResponseWriter, status int, user *models.User, society *models.Society) {
	access, err := s.issueToken(user.ID, accessTokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	refresh, err := s.issueToken(user.ID, refreshTokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	respondData(w, status, models.AuthResponse{
		User:         user,
		Society:      society,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// handleProfile handles GET /auth/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user := s.users[callerID(r)]
	profile := user.User
	s.mu.Unlock()
	respondData(w, http.StatusOK, profile)
}

// handleUpdateProfile handles PUT /auth/profile. Only the mutable fields
// are applied; the response carries the updated profile for the client to
// merge.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch map[string]string
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	user := s.users[callerID(r)]
	if v, ok := patch["full_name"]; ok && v != "" {
		user.FullName = v
	}
	if v, ok := patch["phone"]; ok {
		user.Phone = v
	}
	if v, ok := patch["wing"]; ok {
		user.Wing = v
	}
	if v, ok := patch["avatar_url"]; ok {
		user.AvatarURL = v
	}
	profile := user.User
	s.mu.Unlock()

	respondData(w, http.StatusOK, profile)
}
