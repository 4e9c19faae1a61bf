// Package storage implements the document store backing the API: a JSON
// file-backed driver for development and single-instance deployments, and a
// Postgres driver for shared deployments.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vidtube/internal/models"
)

const (
	// MaxCommentLength bounds the characters allowed in a single comment.
	MaxCommentLength = 500

	minPasswordLength = 8
	maxPasswordLength = 16
)

type dataset struct {
	Users    map[string]models.User          `json:"users"`
	Videos   map[string]models.Video         `json:"videos"`
	Comments map[string]models.Comment       `json:"comments"`
	Likes    map[string]map[string]time.Time `json:"likes"`
}

func newDataset() dataset {
	return dataset{
		Users:    make(map[string]models.User),
		Videos:   make(map[string]models.Video),
		Comments: make(map[string]models.Comment),
		Likes:    make(map[string]map[string]time.Time),
	}
}

// Storage is the JSON document store. All mutations happen under the mutex
// and are flushed to the backing file before they become visible, so each
// exported operation is atomic from a caller's point of view.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	now             func() time.Time
}

// Option mutates storage configuration.
type Option func(*Storage)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// New opens the store at the provided path, loading any existing snapshot.
// An empty path keeps the dataset purely in memory.
func New(filePath string, opts ...Option) (*Storage, error) {
	s := &Storage{
		filePath: filePath,
		data:     newDataset(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if filePath != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Ping reports readiness; the in-process store is always reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read datastore: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode datastore: %w", err)
	}
	s.data = data
	s.ensureDatasetInitializedLocked()
	return nil
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]map[string]time.Time)
	}
}

// persistLocked flushes the dataset while the write lock is held. The
// snapshot is written to a temporary file and renamed into place so a crash
// mid-write never leaves a torn file behind.
func (s *Storage) persistLocked() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}
	if s.filePath == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	dir := filepath.Dir(s.filePath)
	tmp, err := os.CreateTemp(dir, ".vidtube-*.json")
	if err != nil {
		return fmt.Errorf("stage datastore: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("flush datastore: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit datastore: %w", err)
	}
	return nil
}

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
