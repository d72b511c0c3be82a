// Package testdb provides a migrated PostgreSQL database for integration tests. It reuses
// CLUBHUB_TEST_DB when set and otherwise starts one container per test binary.
package testdb

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"clubhub/internal/db"
)

var (
	once      sync.Once
	url       string
	setupErr  error
	container *postgres.PostgresContainer
)

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func start() (string, error) {
	if dsn := os.Getenv("CLUBHUB_TEST_DB"); dsn != "" {
		return dsn, nil
	}
	ctx := context.Background()
	pg, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "clubhub",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return "", err
	}
	container = pg
	return pg.ConnectionString(ctx, "sslmode=disable")
}

// Store returns a store on a freshly truncated database. The test is skipped under -short or
// when no database can be provisioned.
func Store(t *testing.T) *db.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	once.Do(func() {
		url, setupErr = start()
		if setupErr == nil {
			_, setupErr = db.ApplyMigrations(url, migrationsDir())
		}
	})
	if setupErr != nil {
		t.Skipf("postgres unavailable: %v", setupErr)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, 16)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `
    TRUNCATE users, activities, activity_registrations, attendance, exams, exam_questions,
      exam_results, membership_requests, membership_applications, partners CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db.NewStore(pool)
}

// URL is the connection string of the provisioned database. Valid after Store succeeded.
func URL() string {
	return url
}

// Terminate stops the container started by Store, if any. Call it from TestMain after m.Run.
func Terminate() {
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}
