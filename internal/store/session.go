// Package store holds the client-side entity caches: complaints,
// notifications, and the session. Stores are constructible service objects
// with injected dependencies; they never navigate or render, and every
// operation absorbs failures at its own boundary (the returned error
// carries the human-readable message also cached in Err()).
package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/api"
	"github.com/aawaaz/padosi-client/internal/credstore"
	"github.com/aawaaz/padosi-client/internal/models"
)

// Role names as the backend emits them.
const (
	RoleAdmin     = "admin"
	RoleSecretary = "secretary"
	RoleCommittee = "committee_member"
)

// Well-known routes used in navigation intents.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
)

// NavIntent is a navigation request emitted by the session store. Stores
// never perform navigation themselves; a thin adapter subscribed via
// OnNavigate carries it out.
type NavIntent struct {
	Route string
}

// Session owns the current credential and identity. It is the point of
// truth for "is the user signed in" and the only writer of the durable
// credential pair.
type Session struct {
	mu     sync.Mutex
	client *api.Client
	creds  credstore.Store
	logger *zap.SugaredLogger

	user          *models.User
	loading       bool
	lastErr       string
	intendedRoute string
	navigate      func(NavIntent)
}

// NewSession creates a session store. Call Wire to attach the 401 teardown
// hook to the transport client.
func NewSession(client *api.Client, creds credstore.Store, logger *zap.SugaredLogger) *Session {
	return &Session{client: client, creds: creds, logger: logger}
}

// Wire installs this session's teardown as the client's 401 hook.
func (s *Session) Wire() {
	s.client.SetUnauthorizedHook(s.HandleUnauthorized)
}

// OnNavigate subscribes the navigation adapter. At most one subscriber.
func (s *Session) OnNavigate(fn func(NavIntent)) {
	s.mu.Lock()
	s.navigate = fn
	s.mu.Unlock()
}

func (s *Session) emitNav(route string) {
	s.mu.Lock()
	fn := s.navigate
	s.mu.Unlock()
	if fn != nil {
		fn(NavIntent{Route: route})
	}
}

// InitializeAuth restores the session from the persisted credential: when a
// token is present it fetches the profile, and discards the credential
// locally if the backend no longer accepts it. A 401 is already torn down
// by the transport hook, so no extra navigation is emitted here.
func (s *Session) InitializeAuth(ctx context.Context) error {
	if s.creds.AccessToken() == "" {
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer s.setLoading(false)

	env, err := s.client.Get(ctx, "/auth/profile", nil)
	if err != nil {
		if !api.IsStatus(err, 401) {
			s.clearLocal()
		}
		return err
	}

	var user models.User
	if err := env.DecodeData(&user); err != nil {
		s.clearLocal()
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return nil
}

// Login authenticates, persists the token pair atomically, and emits a
// navigation intent to the originally-requested route (captured from the
// last 401 teardown) or the default landing view.
func (s *Session) Login(ctx context.Context, req models.LoginRequest) error {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Post(ctx, "/auth/login", req)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Login failed"))
		return err
	}

	var auth models.AuthResponse
	if err := env.DecodeData(&auth); err != nil {
		s.fail("Login failed")
		return err
	}
	if auth.User == nil {
		s.fail("Login failed")
		return fmt.Errorf("login response carries no user")
	}

	if err := s.creds.Save(credstore.Credentials{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
	}); err != nil {
		s.fail("Failed to persist session")
		return err
	}

	s.mu.Lock()
	if auth.User.Society == nil {
		auth.User.Society = auth.Society
	}
	s.user = auth.User
	redirect := s.intendedRoute
	s.intendedRoute = ""
	s.mu.Unlock()

	if redirect == "" {
		redirect = RouteDashboard
	}
	s.logger.Infow("Logged in", "user_id", auth.User.ID)
	s.emitNav(redirect)
	return nil
}

// Register creates an account, persists the token pair, and emits a
// navigation intent to the default landing view.
func (s *Session) Register(ctx context.Context, req models.RegisterRequest) error {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Post(ctx, "/auth/register", req)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Registration failed"))
		return err
	}

	var auth models.AuthResponse
	if err := env.DecodeData(&auth); err != nil {
		s.fail("Registration failed")
		return err
	}
	if auth.User == nil {
		s.fail("Registration failed")
		return fmt.Errorf("register response carries no user")
	}

	if err := s.creds.Save(credstore.Credentials{
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
	}); err != nil {
		s.fail("Failed to persist session")
		return err
	}

	s.mu.Lock()
	if auth.User.Society == nil {
		auth.User.Society = auth.Society
	}
	s.user = auth.User
	s.intendedRoute = ""
	s.mu.Unlock()

	s.logger.Infow("Registered", "user_id", auth.User.ID)
	s.emitNav(RouteDashboard)
	return nil
}

// Logout clears the durable credential pair and the identity, then emits a
// navigation intent to the login view.
func (s *Session) Logout() {
	s.clearLocal()
	s.emitNav(RouteLogin)
}

// HandleUnauthorized is the transport client's 401 hook: it tears the
// session down, remembers the intended destination for post-login redirect,
// and emits exactly one navigation intent to the login view.
func (s *Session) HandleUnauthorized(intendedPath string) {
	if err := s.creds.Clear(); err != nil {
		s.logger.Warnw("Failed to clear credentials", "error", err)
	}
	s.mu.Lock()
	s.user = nil
	s.lastErr = ""
	s.intendedRoute = intendedPath
	s.mu.Unlock()
	s.emitNav(RouteLogin)
}

// UpdateProfile sends a partial profile update and merges the returned
// fields into the existing identity without replacing it wholesale.
func (s *Session) UpdateProfile(ctx context.Context, patch map[string]any) error {
	s.begin()
	defer s.setLoading(false)

	env, err := s.client.Put(ctx, "/auth/profile", patch)
	if err != nil {
		s.fail(api.ErrorMessage(err, "Failed to update profile"))
		return err
	}
	return s.mergeProfile(env)
}

// RefreshProfile re-fetches the profile and merges it into the identity.
func (s *Session) RefreshProfile(ctx context.Context) error {
	env, err := s.client.Get(ctx, "/auth/profile", nil)
	if err != nil {
		s.logger.Warnw("Failed to refresh profile", "error", err)
		return err
	}
	return s.mergeProfile(env)
}

// mergeProfile decodes the response data over the current identity; only
// fields present in the payload are overwritten.
func (s *Session) mergeProfile(env *api.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		s.user = &models.User{}
	}
	if err := env.DecodeData(s.user); err != nil {
		return err
	}
	return nil
}

// AdjustKarma applies a local karma delta (the backend notifies the real
// value on the next profile refresh).
func (s *Session) AdjustKarma(points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.user.KarmaScore += points
	}
}

// Reset clears session-scoped state without touching the durable
// credential or emitting navigation. External reset hook.
func (s *Session) Reset() {
	s.mu.Lock()
	s.user = nil
	s.lastErr = ""
	s.intendedRoute = ""
	s.mu.Unlock()
}

// IsAuthenticated reports whether a credential and identity are both
// present.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.creds.AccessToken() != ""
}

// User returns a copy of the current identity, or nil when anonymous.
func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAdmin reports whether the user carries the admin role.
func (s *Session) IsAdmin() bool {
	return s.hasRole(RoleAdmin)
}

// IsSecretary reports whether the user is a secretary; admin implies
// secretary.
func (s *Session) IsSecretary() bool {
	return s.hasRole(RoleSecretary) || s.IsAdmin()
}

// IsCommittee reports whether the user sits on the committee; secretary
// implies committee.
func (s *Session) IsCommittee() bool {
	return s.hasRole(RoleCommittee) || s.IsSecretary()
}

// KarmaScore returns the user's karma, 0 when anonymous.
func (s *Session) KarmaScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return 0
	}
	return s.user.KarmaScore
}

// Society returns the user's home society, nil when anonymous.
func (s *Session) Society() *models.Society {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	return s.user.Society
}

// Err returns the last operation's human-readable error, "" when clear.
func (s *Session) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Loading reports whether a session operation is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) hasRole(role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.HasRole(role)
}

func (s *Session) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *Session) clearLocal() {
	if err := s.creds.Clear(); err != nil {
		s.logger.Warnw("Failed to clear credentials", "error", err)
	}
	s.mu.Lock()
	s.user = nil
	s.lastErr = ""
	s.mu.Unlock()
}
