package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newRunner(t *testing.T, handler http.Handler, secret string) *Runner {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewRunner(ts.URL, secret, time.Second, zap.NewNop().Sugar())
}

func TestRunAllExecutesTasksInFixedOrder(t *testing.T) {
	var calls []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	report := newRunner(t, handler, "s3cret").RunAll(context.Background())

	want := []string{"POST /cron/escalate", "POST /cron/reminders", "POST /cron/cleanup"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
	if report.TotalTasks != 3 || report.Successful != 3 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestEveryTaskCarriesTheSharedSecret(t *testing.T) {
	secrets := map[string]string{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secrets[r.URL.Path] = r.Header.Get("X-Cron-Secret")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	newRunner(t, handler, "s3cret").RunAll(context.Background())

	for path, got := range secrets {
		if got != "s3cret" {
			t.Errorf("%s got secret %q", path, got)
		}
	}
	if len(secrets) != 3 {
		t.Fatalf("saw %d endpoints, want 3", len(secrets))
	}
}

func TestFailedTaskDoesNotStopTheRun(t *testing.T) {
	attempts := map[string]int{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts[r.URL.Path]++
		if r.URL.Path == "/cron/reminders" {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "boom"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	report := newRunner(t, handler, "s3cret").RunAll(context.Background())

	if report.Successful != 2 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	// No retries: each endpoint is hit exactly once.
	for path, n := range attempts {
		if n != 1 {
			t.Errorf("%s attempted %d times", path, n)
		}
	}
	if got := attempts["/cron/cleanup"]; got != 1 {
		t.Fatal("cleanup skipped after reminders failed")
	}

	var failed *TaskResult
	for i := range report.Results {
		if report.Results[i].Task == "reminders" {
			failed = &report.Results[i]
		}
	}
	if failed == nil || failed.Success || failed.Status != http.StatusInternalServerError {
		t.Fatalf("reminders result = %+v", failed)
	}
	if failed.Error == "" {
		t.Fatal("failed task carries no error message")
	}
}

func TestUnreachableBackendReportsTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close()
	runner := NewRunner(ts.URL, "s3cret", time.Second, zap.NewNop().Sugar())

	report := runner.Run(context.Background(), []Task{{Name: "escalation", Endpoint: "/cron/escalate"}})

	if report.Failed != 1 || report.Successful != 0 {
		t.Fatalf("report = %+v", report)
	}
	res := report.Results[0]
	if res.Success || res.Status != 0 || res.Error == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestResultCapturesResponseBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]int{"escalated": 2},
		})
	})

	report := newRunner(t, handler, "s3cret").Run(context.Background(),
		[]Task{{Name: "escalation", Endpoint: "/cron/escalate"}})

	var body struct {
		Data struct {
			Escalated int `json:"escalated"`
		} `json:"data"`
	}
	if err := json.Unmarshal(report.Results[0].Data, &body); err != nil {
		t.Fatalf("decode task data: %v", err)
	}
	if body.Data.Escalated != 2 {
		t.Fatalf("escalated = %d", body.Data.Escalated)
	}
}

func TestStatusProbesHealthEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	runner := newRunner(t, mux, "")

	if err := runner.Status(context.Background()); err != nil {
		t.Fatalf("Status: %v", err)
	}
}

func TestStatusRejectsUnhealthyBackend(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	runner := newRunner(t, handler, "")

	if err := runner.Status(context.Background()); err == nil {
		t.Fatal("Status accepted a 503 backend")
	}
}
