package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresLockManager struct {
	db *sql.DB
}

func NewPostgresLockManager(db *sql.DB) *PostgresLockManager {
	return &PostgresLockManager{db: db}
}

func (l *PostgresLockManager) Acquire(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

func (l *PostgresLockManager) TryAcquire(lockID int) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	return acquired, nil
}

func (l *PostgresLockManager) Release(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
