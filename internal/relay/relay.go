// Package relay invokes the backend's maintenance endpoints the way the
// scheduled cron worker does: three idempotent tasks run in a fixed
// sequential order, each tagged with the shared secret header, with
// per-task success/status/duration aggregated into a run report. A failed
// task is reported and the run continues; nothing is retried within one
// invocation.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Task names a maintenance endpoint.
type Task struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
}

// DefaultTasks is the fixed sequence the scheduled run executes.
var DefaultTasks = []Task{
	{Name: "escalation", Endpoint: "/cron/escalate"},
	{Name: "reminders", Endpoint: "/cron/reminders"},
	{Name: "cleanup", Endpoint: "/cron/cleanup"},
}

// TaskResult is the outcome of one task invocation.
type TaskResult struct {
	Task       string          `json:"task"`
	Success    bool            `json:"success"`
	Status     int             `json:"status,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Report aggregates one relay run.
type Report struct {
	Timestamp  string       `json:"timestamp"`
	BackendURL string       `json:"backend_url"`
	TotalTasks int          `json:"total_tasks"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []TaskResult `json:"results"`
}

// Runner drives maintenance runs against one backend.
type Runner struct {
	baseURL string
	secret  string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// NewRunner creates a relay runner for the API rooted at baseURL.
func NewRunner(baseURL, secret string, timeout time.Duration, logger *zap.SugaredLogger) *Runner {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// RunAll executes the default task sequence in order and returns the
// aggregated report.
func (r *Runner) RunAll(ctx context.Context) Report {
	return r.Run(ctx, DefaultTasks)
}

// Run executes the given tasks sequentially. Later tasks still run when an
// earlier one fails.
func (r *Runner) Run(ctx context.Context, tasks []Task) Report {
	report := Report{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		BackendURL: r.baseURL,
		TotalTasks: len(tasks),
	}
	for _, task := range tasks {
		r.logger.Infow("Running task", "task", task.Name)
		result := r.runTask(ctx, task)
		if result.Success {
			report.Successful++
			r.logger.Infow("Task succeeded", "task", task.Name, "duration_ms", result.DurationMS)
		} else {
			report.Failed++
			r.logger.Warnw("Task failed", "task", task.Name, "status", result.Status, "error", result.Error)
		}
		report.Results = append(report.Results, result)
	}
	return report
}

func (r *Runner) runTask(ctx context.Context, task Task) TaskResult {
	start := time.Now()
	result := TaskResult{Task: task.Name}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+task.Endpoint, nil)
	if err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cron-Secret", r.secret)
	req.Header.Set("User-Agent", "padosi-cron-relay")

	resp, err := r.http.Do(req)
	if err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	result.Success = resp.StatusCode >= 200 && resp.StatusCode <= 299
	result.DurationMS = time.Since(start).Milliseconds()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		result.Data = body
	}
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("backend returned %d", resp.StatusCode)
	}
	return result
}

// Status probes the backend health endpoint.
func (r *Runner) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "padosi-cron-relay")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
