package mockapi_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/api"
	"github.com/aawaaz/padosi-client/internal/credstore"
	"github.com/aawaaz/padosi-client/internal/mockapi"
	"github.com/aawaaz/padosi-client/internal/models"
	"github.com/aawaaz/padosi-client/internal/relay"
	"github.com/aawaaz/padosi-client/internal/store"
)

const testCronSecret = "cron-secret"

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := mockapi.New("test-jwt-secret", testCronSecret, zap.NewNop().Sugar())
	srv.Seed()
	ts := httptest.NewServer(srv.Router(nil))
	t.Cleanup(ts.Close)
	return ts
}

type resident struct {
	session       *store.Session
	complaints    *store.Complaints
	notifications *store.Notifications
	client        *api.Client
	creds         *credstore.Memory
}

// signUp registers a fresh resident and returns a fully wired store set,
// matching the assembly in the binaries.
func signUp(t *testing.T, ts *httptest.Server, email, name, flat string) *resident {
	t.Helper()
	creds := credstore.NewMemory()
	client := api.NewClient(ts.URL, api.Options{Tokens: creds, Logger: zap.NewNop().Sugar()})
	session := store.NewSession(client, creds, zap.NewNop().Sugar())
	session.Wire()

	err := session.Register(context.Background(), models.RegisterRequest{
		Email:      email,
		Password:   "password123",
		FullName:   name,
		FlatNumber: flat,
		SocietyID:  1,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return &resident{
		session:       session,
		complaints:    store.NewComplaints(client, zap.NewNop().Sugar()),
		notifications: store.NewNotifications(client, zap.NewNop().Sugar()),
		client:        client,
		creds:         creds,
	}
}

func TestRegisterThenLoginRoundTrip(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	first := signUp(t, ts, "meera@example.com", "Meera Kulkarni", "B-404")
	if !first.session.IsAuthenticated() {
		t.Fatal("not authenticated after register")
	}
	if soc := first.session.Society(); soc == nil || soc.Name != "Green Meadows CHS" {
		t.Fatalf("Society = %+v", soc)
	}

	// Same account from a second device.
	creds := credstore.NewMemory()
	client := api.NewClient(ts.URL, api.Options{Tokens: creds, Logger: zap.NewNop().Sugar()})
	session := store.NewSession(client, creds, zap.NewNop().Sugar())
	session.Wire()
	if err := session.Login(ctx, models.LoginRequest{Email: "meera@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := session.User().FullName; got != "Meera Kulkarni" {
		t.Fatalf("FullName = %q", got)
	}

	// Restarting with only the persisted token restores the profile.
	restored := store.NewSession(client, creds, zap.NewNop().Sugar())
	restored.Wire()
	if err := restored.InitializeAuth(ctx); err != nil {
		t.Fatalf("InitializeAuth: %v", err)
	}
	if !restored.IsAuthenticated() {
		t.Fatal("restored session not authenticated")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ts := newBackend(t)
	signUp(t, ts, "meera@example.com", "Meera Kulkarni", "B-404")

	creds := credstore.NewMemory()
	client := api.NewClient(ts.URL, api.Options{Tokens: creds, Logger: zap.NewNop().Sugar()})
	session := store.NewSession(client, creds, zap.NewNop().Sugar())
	session.Wire()

	err := session.Login(context.Background(), models.LoginRequest{Email: "meera@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("login succeeded with wrong password")
	}
	if got := session.Err(); got != "Invalid email or password" {
		t.Fatalf("Err = %q", got)
	}
}

func TestComplaintLifecycleAcrossResidents(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	author := signUp(t, ts, "author@example.com", "Arun Shah", "A-101")
	neighbor := signUp(t, ts, "neighbor@example.com", "Priya Nair", "A-102")

	created, err := author.complaints.Create(ctx, models.ComplaintDraft{
		Title:       "Water leakage in basement parking",
		Description: "Standing water near pillar 4 for a week.",
		Category:    "maintenance",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The neighbor sees it in the list and on the detail view.
	if err := neighbor.complaints.FetchList(ctx, nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	items := neighbor.complaints.Items()
	if len(items) != 1 || items[0].ID != created.ID {
		t.Fatalf("list = %+v", items)
	}
	if err := neighbor.complaints.FetchOne(ctx, created.ID); err != nil {
		t.Fatalf("FetchOne: %v", err)
	}

	// Supporting it updates both caches and notifies the author.
	if err := neighbor.complaints.Vote(ctx, created.ID, models.VoteSupport, false); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if got := neighbor.complaints.Current(); got.SupportCount != 1 || got.UserVote != models.VoteSupport {
		t.Fatalf("detail after vote = %+v", got)
	}
	if got := neighbor.complaints.Items()[0]; got.SupportCount != 1 {
		t.Fatalf("list entry after vote = %+v", got)
	}

	// Commenting bumps the thread and notifies the author too.
	if _, err := neighbor.complaints.AddComment(ctx, created.ID, "Same issue near pillar 6.", false); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if err := author.notifications.FetchList(ctx, nil); err != nil {
		t.Fatalf("FetchList notifications: %v", err)
	}
	titles := map[string]bool{}
	for _, n := range author.notifications.Items() {
		titles[n.Title] = true
	}
	if !titles["New support for your complaint"] || !titles["New comment on your complaint"] {
		t.Fatalf("author notifications = %v", titles)
	}

	// The author's own vote on their complaint does not self-notify.
	if err := author.complaints.Vote(ctx, created.ID, models.VoteSupport, false); err != nil {
		t.Fatalf("author Vote: %v", err)
	}
	before := author.notifications.UnreadCount()
	if err := author.notifications.FetchList(ctx, nil); err != nil {
		t.Fatalf("refetch notifications: %v", err)
	}
	if author.notifications.UnreadCount() != before {
		t.Fatal("self-vote generated a notification")
	}
}

func TestVoteRemovalClearsOwnVote(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	author := signUp(t, ts, "author@example.com", "Arun Shah", "A-101")
	voter := signUp(t, ts, "voter@example.com", "Priya Nair", "A-102")

	created, err := author.complaints.Create(ctx, models.ComplaintDraft{
		Title: "Lift out of order", Category: "maintenance",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := voter.complaints.FetchList(ctx, nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	if err := voter.complaints.Vote(ctx, created.ID, models.VoteOppose, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if got := voter.complaints.Items()[0]; got.OpposeCount != 1 || got.UserVote != models.VoteOppose {
		t.Fatalf("after vote = %+v", got)
	}

	if err := voter.complaints.RemoveVote(ctx, created.ID); err != nil {
		t.Fatalf("RemoveVote: %v", err)
	}
	if got := voter.complaints.Items()[0]; got.OpposeCount != 0 || got.UserVote != "" {
		t.Fatalf("after removal = %+v", got)
	}
}

func TestLookupEndpointsAreMemoizedAgainstTheBackend(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()
	r := signUp(t, ts, "meera@example.com", "Meera Kulkarni", "B-404")

	if _, err := r.complaints.LoadCategories(ctx); err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	got := r.complaints.Categories()
	if len(got) == 0 {
		t.Fatal("no categories returned")
	}
	for _, opt := range got {
		if opt.Value == "" || opt.Label == "" {
			t.Fatalf("malformed option %+v", opt)
		}
	}
}

func TestWelcomeNotificationAndUnreadLifecycle(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()
	r := signUp(t, ts, "meera@example.com", "Meera Kulkarni", "B-404")

	if err := r.notifications.FetchUnreadCount(ctx); err != nil {
		t.Fatalf("FetchUnreadCount: %v", err)
	}
	if got := r.notifications.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d, want the welcome notification", got)
	}

	if err := r.notifications.FetchList(ctx, nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	welcome := r.notifications.Items()[0]
	if welcome.Title != "Welcome!" || welcome.IsRead {
		t.Fatalf("welcome notification = %+v", welcome)
	}

	if err := r.notifications.MarkAsRead(ctx, welcome.ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if got := r.notifications.UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount = %d after reading", got)
	}

	// The backend agrees.
	if err := r.notifications.FetchUnreadCount(ctx); err != nil {
		t.Fatalf("FetchUnreadCount: %v", err)
	}
	if got := r.notifications.UnreadCount(); got != 0 {
		t.Fatalf("backend unread = %d", got)
	}
}

func TestCronEscalationAtSupportThreshold(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()

	author := signUp(t, ts, "author@example.com", "Arun Shah", "A-101")
	created, err := author.complaints.Create(ctx, models.ComplaintDraft{
		Title: "Garbage not collected for a week", Category: "cleanliness",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Four supporters is below the threshold.
	for i := 0; i < 4; i++ {
		v := signUp(t, ts, fmt.Sprintf("voter%d@example.com", i), "Voter", fmt.Sprintf("C-%d", i))
		if err := v.complaints.Vote(ctx, created.ID, models.VoteSupport, true); err != nil {
			t.Fatalf("Vote: %v", err)
		}
	}

	runner := relay.NewRunner(ts.URL, testCronSecret, time.Second, zap.NewNop().Sugar())
	report := runner.Run(ctx, []relay.Task{{Name: "escalation", Endpoint: "/cron/escalate"}})
	if report.Failed != 0 {
		t.Fatalf("escalation run failed: %+v", report.Results)
	}
	if err := author.complaints.FetchOne(ctx, created.ID); err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if got := author.complaints.Current().Status; got != models.StatusOpen {
		t.Fatalf("status = %q below threshold, want open", got)
	}

	// The fifth supporter tips it over.
	v := signUp(t, ts, "voter4@example.com", "Voter", "C-4")
	if err := v.complaints.Vote(ctx, created.ID, models.VoteSupport, true); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	report = runner.Run(ctx, []relay.Task{{Name: "escalation", Endpoint: "/cron/escalate"}})
	if report.Failed != 0 {
		t.Fatalf("escalation run failed: %+v", report.Results)
	}

	if err := author.complaints.FetchOne(ctx, created.ID); err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if got := author.complaints.Current().Status; got != models.StatusEscalated {
		t.Fatalf("status = %q, want escalated", got)
	}

	if err := author.notifications.FetchList(ctx, nil); err != nil {
		t.Fatalf("FetchList: %v", err)
	}
	found := false
	for _, n := range author.notifications.Items() {
		if n.Title == "Complaint escalated" {
			found = true
		}
	}
	if !found {
		t.Fatal("no escalation notification for the complainant")
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	ts := newBackend(t)
	signUp(t, ts, "meera@example.com", "Meera Kulkarni", "B-404")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "padosi_mock_requests_total") {
		t.Fatal("request counter missing from /metrics output")
	}
}

func TestCronEndpointsRejectBadSecret(t *testing.T) {
	ts := newBackend(t)

	runner := relay.NewRunner(ts.URL, "wrong-secret", time.Second, zap.NewNop().Sugar())
	report := runner.RunAll(context.Background())

	if report.Failed != 3 || report.Successful != 0 {
		t.Fatalf("report = %+v", report)
	}
	for _, res := range report.Results {
		if res.Status != http.StatusForbidden {
			t.Errorf("task %s status = %d, want 403", res.Task, res.Status)
		}
	}
}

func TestExpiredSessionTearsDownThroughTheFullStack(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()
	r := signUp(t, ts, "meera@example.com", "Meera Kulkarni", "B-404")

	var navs []store.NavIntent
	r.session.OnNavigate(func(n store.NavIntent) { navs = append(navs, n) })

	// Corrupt the stored token; the next protected call gets a real 401
	// from the backend's auth middleware.
	r.creds.Save(credstore.Credentials{AccessToken: "garbage"})

	if err := r.complaints.FetchList(ctx, nil); err == nil {
		t.Fatal("FetchList succeeded with a garbage token")
	}
	if r.session.IsAuthenticated() {
		t.Fatal("session survived the 401")
	}
	if len(navs) != 1 || navs[0].Route != store.RouteLogin {
		t.Fatalf("navigation intents = %+v", navs)
	}
}
