package jobs

import (
	"context"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"clubhub/internal/config"
	"clubhub/internal/db"
	"clubhub/internal/metrics"
	"clubhub/internal/operations"
)

// Task is one periodic unit of work. Run reports how many rows it touched.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// Start launches every task on its own ticker until ctx is cancelled. Each tick gets its own
// timeout so a stuck query cannot pile up runs.
func Start(ctx context.Context, cfg config.Config, tasks ...Task) {
	if !cfg.JobsEnabled {
		logger.Info.Println("background jobs disabled")
		return
	}
	interval := cfg.JobsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.JobsTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	for _, task := range tasks {
		go loop(ctx, task, interval, timeout)
	}
}

func loop(ctx context.Context, task Task, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, task, timeout)
		}
	}
}

func runOnce(ctx context.Context, task Task, timeout time.Duration) {
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	affected, err := task.Run(tickCtx, time.Now().UTC())
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(task.Name, "error").Inc()
		logger.Error.Printf("%s job error: %v", task.Name, err)
		return
	}
	metrics.JobRunsTotal.WithLabelValues(task.Name, "ok").Inc()
	if affected > 0 {
		logger.Info.Printf("%s job touched %d rows", task.Name, affected)
	}
}

// ExpireAttempts closes exam attempts left in progress past their duration plus grace.
func ExpireAttempts(store *db.Store, grace time.Duration) Task {
	return Task{
		Name: "expire_attempts",
		Run: func(ctx context.Context, now time.Time) (int64, error) {
			closed, err := operations.ExpireAttempts(ctx, store, now, grace)
			return int64(closed), err
		},
	}
}

// CompleteActivities marks published activities whose end date passed as completed.
func CompleteActivities(store *db.Store) Task {
	return Task{
		Name: "complete_activities",
		Run: func(ctx context.Context, now time.Time) (int64, error) {
			return store.Queries.CompletePastActivities(ctx, now)
		},
	}
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthSetter interface {
	SetServing(serving bool)
}

// DatabaseProbe pings the database and publishes the outcome to the health service.
func DatabaseProbe(pinger Pinger, health HealthSetter) Task {
	return Task{
		Name: "database_probe",
		Run: func(ctx context.Context, _ time.Time) (int64, error) {
			err := pinger.Ping(ctx)
			health.SetServing(err == nil)
			return 0, err
		},
	}
}
