package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/agencydesk/agencydesk/internal/config"
	"github.com/agencydesk/agencydesk/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const snapshotName = "agencydesk-migrated"

// TestDB is a migrated Postgres container shared by the tests of one package.
type TestDB struct {
	container *postgres.PostgresContainer
	cfg       config.Database
}

// StartTestDB runs a Postgres container, applies all migrations and snapshots the schema.
// Intended for TestMain; failures exit the process.
func StartTestDB() *TestDB {
	ctx := context.Background()
	cfg := config.Database{
		User:   "test_agencydesk",
		Pass:   "test_agencydesk",
		Name:   "agencydesk",
		Schema: "agencydesk",
	}

	root, err := projectRoot()
	if err != nil {
		log.Fatalf("failed to find project root: %v", err)
	}
	container, err := postgres.Run(
		ctx, "postgres:18.1-alpine",
		postgres.WithInitScripts(filepath.Join(root, "dev", "init.sql")),
		postgres.WithDatabase(cfg.Name),
		postgres.WithUsername(cfg.User),
		postgres.WithPassword(cfg.Pass),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	cfg.Host, _ = container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")
	cfg.Port = port.Int()
	log.Infof("Postgres container started at %s:%d", cfg.Host, cfg.Port)

	if err := database.Migrate(cfg); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}
	if err := container.Snapshot(ctx, postgres.WithSnapshotName(snapshotName)); err != nil {
		log.Fatalf("failed to snapshot postgres container: %v", err)
	}
	return &TestDB{container: container, cfg: cfg}
}

// Pool opens a connection pool for one test. When the test ends the pool is closed and the
// database is restored to the freshly migrated snapshot.
func (d *TestDB) Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := database.Open(d.cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
		require.NoError(t, d.container.Restore(context.Background(), postgres.WithSnapshotName(snapshotName)))
	})
	return pool
}

func (d *TestDB) Terminate() {
	if err := testcontainers.TerminateContainer(d.container); err != nil {
		log.Errorf("failed to terminate container: %s", err)
	}
}

// RunWithDB is a TestMain body: it starts the shared database, runs the tests and exits.
func RunWithDB(m *testing.M, db **TestDB) {
	*db = StartTestDB()
	code := m.Run()
	(*db).Terminate()
	os.Exit(code)
}

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root")
		}
		dir = parent
	}
}
