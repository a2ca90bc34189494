// Package store persists analysis reports under a directory: one JSON file
// per report plus an index.json listing them.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/tabstat/internal/analysis"
	"github.com/KaramelBytes/tabstat/internal/utils"
)

const indexFileName = "index.json"

var (
	// ErrNotFound is returned when no saved report matches an ID.
	ErrNotFound = errors.New("report not found")
	// ErrAmbiguous is returned when an ID prefix matches several reports.
	ErrAmbiguous = errors.New("ambiguous report id")
)

// Store is a directory of saved reports. It is safe for concurrent use
// within one process.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open returns a store rooted at dir, creating the directory if necessary.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("reports directory not set")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the on-disk store directory.
func (s *Store) Dir() string { return s.dir }

// Save writes rep to <id>.json and records it in the index.
func (s *Store) Save(rep *analysis.Report, source string) (*Entry, error) {
	if rep == nil {
		return nil, errors.New("report is nil")
	}
	if rep.ID == "" {
		return nil, errors.New("report has no id")
	}
	data, err := utils.PrettyJSON(rep)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.SafeWriteFile(s.reportPath(rep.ID), data); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	created := rep.GeneratedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	e := Entry{
		ID:        rep.ID,
		Name:      rep.Name,
		Source:    source,
		Rows:      rep.Rows,
		Columns:   len(rep.Columns),
		Warnings:  len(rep.Warnings),
		CreatedAt: created,
	}
	replaced := false
	for i := range entries {
		if entries[i].ID == e.ID {
			entries[i] = e
			replaced = true
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	if err := s.writeIndex(entries); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns the index entries, newest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Resolve expands a full ID or unique ID prefix to the stored entry.
func (s *Store) Resolve(id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	var matches []Entry
	for _, e := range entries {
		if e.ID == id {
			return &e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return &matches[0], nil
	}
	return nil, fmt.Errorf("%w: %s matches %d reports", ErrAmbiguous, id, len(matches))
}

// Load reads the report with the given ID or unique prefix.
func (s *Store) Load(id string) (*analysis.Report, error) {
	e, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.reportPath(e.ID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (indexed but file missing)", ErrNotFound, e.ID)
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep analysis.Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", e.ID, err)
	}
	return &rep, nil
}

// Delete removes a report and its index entry.
func (s *Store) Delete(id string) error {
	e, err := s.Resolve(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.reportPath(e.ID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove report: %w", err)
	}
	entries, err := s.readIndex()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, x := range entries {
		if x.ID != e.ID {
			kept = append(kept, x)
		}
	}
	return s.writeIndex(kept)
}

func (s *Store) reportPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) readIndex() ([]Entry, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, indexFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return entries, nil
}

func (s *Store) writeIndex(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := utils.PrettyJSON(entries)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.dir, indexFileName), data)
}
