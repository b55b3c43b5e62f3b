// Package file implements ports.ResultStore on the local filesystem. Each
// run is one JSON Lines file; records are appended as they finalize, so a
// crashed run leaves everything recorded up to the last completed trial.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/quadrat/pkg/domain"
)

const runFileExt = ".jsonl"

// Store implements ports.ResultStore using one JSONL file per run.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".quadrat/runs".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".quadrat", "runs")
	}
	return &Store{BasePath: basePath}
}

// Append writes one record as a JSON line and fsyncs it, so a finalized
// trial survives a crash of the host process.
func (s *Store) Append(ctx context.Context, runID string, rec domain.Result) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if err := validateRunID(runID); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure run directory: %w", err)
	}

	f, err := os.OpenFile(s.runPath(runID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open run file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to fsync run file: %w", err)
	}
	return nil
}

// List returns all records for a run in append order.
func (s *Store) List(ctx context.Context, runID string) ([]domain.Result, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if err := validateRunID(runID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.runPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to open run file: %w", err)
	}
	defer f.Close()

	var records []domain.Result
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.Result
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt record at line %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	return records, nil
}

// Delete removes the run file.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return fmt.Errorf("runID cannot be empty")
	}
	if err := validateRunID(runID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.runPath(runID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

// Runs returns all stored run IDs.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != runFileExt {
			continue
		}
		runs = append(runs, strings.TrimSuffix(entry.Name(), runFileExt))
	}
	return runs, nil
}

func (s *Store) runPath(runID string) string {
	return filepath.Join(s.BasePath, runID+runFileExt)
}

// validateRunID rejects IDs that would escape the base directory.
func validateRunID(runID string) error {
	if strings.ContainsAny(runID, "/\\") || strings.Contains(runID, "..") {
		return fmt.Errorf("invalid run ID: %q", runID)
	}
	return nil
}
