package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"dataorch/internal/lock"
)

const schema = "dataorch"

// Open connects to Postgres and verifies the connection.
func Open(postgresURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// Migrate creates the schema and applies every SQL script under migrationsDir in
// lexical order. An advisory lock keeps concurrent replicas from racing the
// migration; scripts are expected to be idempotent (CREATE ... IF NOT EXISTS).
func Migrate(conn *sql.DB, migrationsDir string, logger *zap.SugaredLogger) error {
	lockManager := lock.NewPostgresLockManager(conn)
	if err := lockManager.Acquire(lock.MigrationLock); err != nil {
		return err
	}
	defer lockManager.Release(lock.MigrationLock)

	if _, err := conn.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	scripts, err := readSQLScripts(migrationsDir)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		logger.Infow("applying migration", "script", script.name)
		if _, err := conn.Exec(script.content); err != nil {
			return fmt.Errorf("apply %s: %w", script.name, err)
		}
	}
	return nil
}

type sqlScript struct {
	name    string
	content string
}

func readSQLScripts(dir string) ([]sqlScript, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]sqlScript, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, sqlScript{name: name, content: string(content)})
	}
	return scripts, nil
}
