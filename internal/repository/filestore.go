package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"healthkinator/internal/domain"
)

const (
	reportsFile = "reports.json"
	profileFile = "profile.json"
)

// FileStore keeps reports and the profile as JSON documents under a state
// directory. Reads are best-effort: a missing or corrupt file behaves like
// an empty store. Writes go through a temp-file-and-rename so a crash never
// leaves a half-written document behind.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the state directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("repository: state dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("repository: create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// DefaultStateDir resolves the per-user state directory:
// $XDG_STATE_HOME/healthkinator, falling back to ~/.healthkinator.
func DefaultStateDir() (string, error) {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "healthkinator"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("repository: resolve home dir: %w", err)
	}
	return filepath.Join(home, ".healthkinator"), nil
}

func (s *FileStore) Save(_ context.Context, r domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.readReports()
	updated := make([]domain.Report, 0, len(existing)+1)
	updated = append(updated, r)
	for _, old := range existing {
		if old.ID != r.ID {
			updated = append(updated, old)
		}
	}
	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return fmt.Errorf("repository: marshal reports: %w", err)
	}
	return s.writeAtomic(reportsFile, data)
}

func (s *FileStore) List(_ context.Context) ([]domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := s.readReports()
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	return reports, nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, reportsFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("repository: clear reports: %w", err)
	}
	return nil
}

func (s *FileStore) SaveProfile(_ context.Context, p domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("repository: marshal profile: %w", err)
	}
	return s.writeAtomic(profileFile, data)
}

func (s *FileStore) LoadProfile(_ context.Context) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, profileFile))
	if err != nil {
		return domain.DefaultProfile(), nil
	}
	var p domain.UserProfile
	if err := json.Unmarshal(data, &p); err != nil || strings.TrimSpace(p.Name) == "" {
		return domain.DefaultProfile(), nil
	}
	return p, nil
}

// readReports loads the report document, treating any failure as an empty
// collection.
func (s *FileStore) readReports() []domain.Report {
	data, err := os.ReadFile(filepath.Join(s.dir, reportsFile))
	if err != nil {
		return nil
	}
	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil
	}
	return reports
}

// writeAtomic writes data to a sibling temp file and renames it over the
// target so readers never observe a partial document.
func (s *FileStore) writeAtomic(name string, data []byte) error {
	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("repository: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("repository: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("repository: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("repository: rename temp file: %w", err)
	}
	return nil
}
