// Package history persists the capped list of past transcriptions.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"video-transcriber/internal/domain"
)

// MaxEntries caps the number of entries kept on disk.
const MaxEntries = 20

// Store reads and writes the history file. It holds no in-memory copy;
// every call goes to disk. Concurrent writers are last-writer-wins.
type Store struct {
	path   string
	log    logrus.FieldLogger
	now    func() time.Time
	rename func(oldpath, newpath string) error
}

// NewStore creates a store backed by the JSON file at path.
func NewStore(path string, log logrus.FieldLogger) *Store {
	return &Store{
		path:   path,
		log:    log.WithField("component", "history"),
		now:    time.Now,
		rename: os.Rename,
	}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns stored entries, newest first. A missing or corrupt file
// yields an empty list.
func (s *Store) Get() []domain.HistoryEntry {
	return s.read()
}

// Save prepends entry, truncates to MaxEntries, and rewrites the file.
func (s *Store) Save(entry domain.HistoryEntry) ([]domain.HistoryEntry, error) {
	if entry.Date == "" {
		entry.Date = FormatDate(s.now())
	}

	current := s.read()
	entries := make([]domain.HistoryEntry, 0, len(current)+1)
	entries = append(entries, entry)
	entries = append(entries, current...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	if err := s.write(entries); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"title":   entry.Title,
		"entries": len(entries),
	}).Debug("history entry saved")
	return entries, nil
}

// NewEntry builds an entry stamped with the recording time.
func NewEntry(title, path string, now time.Time) domain.HistoryEntry {
	return domain.HistoryEntry{
		Title: title,
		Path:  path,
		Date:  FormatDate(now),
	}
}

// FormatDate renders t as an ISO-8601 UTC timestamp with millisecond precision.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (s *Store) read() []domain.HistoryEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).Warn("history file unreadable, treating as empty")
		}
		return []domain.HistoryEntry{}
	}

	var entries []domain.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.WithError(err).Warn("history file corrupt, treating as empty")
		return []domain.HistoryEntry{}
	}
	if entries == nil {
		return []domain.HistoryEntry{}
	}
	return entries
}

func (s *Store) write(entries []domain.HistoryEntry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod history: %w", err)
	}
	if err := s.rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
