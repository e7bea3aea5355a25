package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"healthkinator/internal/domain"
)

// PostgresStore keeps reports and the profile in Postgres. The schema is
// created on open so a fresh database works without a separate migration
// step.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore connects with the given DSN and ensures the schema.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("repository: postgres dsn must not be empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection; the caller manages its
// lifecycle. Used by tests.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("repository: db must not be nil")
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			condition TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			report TEXT NOT NULL,
			suggestions JSONB NOT NULL DEFAULT '[]',
			transcript JSONB NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			name TEXT NOT NULL,
			avatar TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository: migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, r domain.Report) error {
	suggestions, err := json.Marshal(r.Diagnosis.Suggestions)
	if err != nil {
		return fmt.Errorf("repository: Save encode suggestions: %w", err)
	}
	transcript, err := json.Marshal(r.Transcript)
	if err != nil {
		return fmt.Errorf("repository: Save encode transcript: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, created_at, condition, confidence, report, suggestions, transcript)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			condition = EXCLUDED.condition,
			confidence = EXCLUDED.confidence,
			report = EXCLUDED.report,
			suggestions = EXCLUDED.suggestions,
			transcript = EXCLUDED.transcript`,
		r.ID, r.CreatedAt.UTC(), r.Diagnosis.Condition, r.Diagnosis.Confidence,
		r.Diagnosis.Report, suggestions, transcript,
	)
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, condition, confidence, report, suggestions, transcript
		 FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("repository: List: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var (
			r           domain.Report
			suggestions []byte
			transcript  []byte
		)
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Diagnosis.Condition,
			&r.Diagnosis.Confidence, &r.Diagnosis.Report, &suggestions, &transcript); err != nil {
			return nil, fmt.Errorf("repository: List scan: %w", err)
		}
		if err := json.Unmarshal(suggestions, &r.Diagnosis.Suggestions); err != nil {
			return nil, fmt.Errorf("repository: List decode suggestions: %w", err)
		}
		if err := json.Unmarshal(transcript, &r.Transcript); err != nil {
			return nil, fmt.Errorf("repository: List decode transcript: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: List rows: %w", err)
	}
	return reports, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports`); err != nil {
		return fmt.Errorf("repository: Clear: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, avatar) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, avatar = EXCLUDED.avatar`,
		p.Name, p.Avatar,
	)
	if err != nil {
		return fmt.Errorf("repository: SaveProfile: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadProfile(ctx context.Context) (domain.UserProfile, error) {
	var p domain.UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT name, avatar FROM profiles WHERE id = 1`).Scan(&p.Name, &p.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultProfile(), nil
	}
	if err != nil {
		return domain.DefaultProfile(), nil
	}
	return p, nil
}
