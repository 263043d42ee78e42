package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// StoreSource reads the most recent app_settings row.
type StoreSource struct {
	db *sql.DB
}

func NewStoreSource(db *sql.DB) *StoreSource {
	return &StoreSource{db: db}
}

func (s *StoreSource) Name() string { return "store" }

func (s *StoreSource) Load(ctx context.Context) (string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload
		FROM dataorch.app_settings
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&payload)
	if err != nil {
		return "", fmt.Errorf("load settings from store: %w", err)
	}
	return payload, nil
}

// FileSource reads a local settings JSON file.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Load(_ context.Context) (string, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("load settings from %s: %w", s.path, err)
	}
	return string(content), nil
}

// StaticSource is the hardcoded last-resort default.
type StaticSource struct {
	value string
}

func NewStaticSource(value string) *StaticSource {
	if value == "" {
		value = "{}"
	}
	return &StaticSource{value: value}
}

func (s *StaticSource) Name() string { return "default" }

func (s *StaticSource) Load(_ context.Context) (string, error) {
	return s.value, nil
}
