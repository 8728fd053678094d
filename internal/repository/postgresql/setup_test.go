package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedDB     *database.DB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// testDatabase returns a migrated database shared by every test in the
// package. TEST_DATABASE_URL wins; otherwise a throwaway PostgreSQL
// container is started.
func testDatabase(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires PostgreSQL)")
	}

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = setupDatabase(context.Background())
	})
	if sharedDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedDBErr)
	}

	truncateAll(t, sharedDB)
	return sharedDB
}

func setupDatabase(ctx context.Context) (*database.DB, error) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		var err error
		dsn, err = startContainer(ctx)
		if err != nil {
			return nil, err
		}
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func startContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "presence_test",
			"POSTGRES_USER":     "presence",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://presence:test_password@%s:%s/presence_test?sslmode=disable", host, port.Port()), nil
}

func truncateAll(t *testing.T, db *database.DB) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		TRUNCATE TABLE punches, directory_identities, presence_entries,
			presence_overrides, visitor_entries, operators
		RESTART IDENTITY
	`)
	require.NoError(t, err)
}
