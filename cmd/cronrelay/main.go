// Package main is the cron maintenance relay: it pings the backend's
// escalation, reminder, and cleanup endpoints in a fixed sequential order
// and prints the aggregated run report. Deploy it under any scheduler
// (systemd timer, Kubernetes CronJob); one invocation is one run, with no
// retries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/aawaaz/padosi-client/internal/config"
	"github.com/aawaaz/padosi-client/internal/relay"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	backendURL := pflag.String("backend-url", cfg.APIBaseURL, "backend API base URL")
	secret := pflag.String("secret", cfg.CronSecret, "shared cron secret")
	task := pflag.String("task", "", "run a single task (escalation|reminders|cleanup) instead of all")
	statusOnly := pflag.Bool("status", false, "probe backend health and exit")
	pflag.Parse()

	runner := relay.NewRunner(*backendURL, *secret, cfg.CronTimeout, sugar)
	ctx := context.Background()

	if *statusOnly {
		if err := runner.Status(ctx); err != nil {
			sugar.Errorw("Backend status check failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("backend healthy")
		return
	}

	tasks := relay.DefaultTasks
	if *task != "" {
		tasks = nil
		for _, t := range relay.DefaultTasks {
			if t.Name == *task {
				tasks = []relay.Task{t}
			}
		}
		if tasks == nil {
			sugar.Fatalf("Unknown task %q", *task)
		}
	}

	report := runner.Run(ctx, tasks)

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if report.Failed > 0 {
		os.Exit(1)
	}
}
