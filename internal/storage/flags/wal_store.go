// Package flags persists small string flags (first-use markers and the like).
package flags

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

const (
	defaultFlagsDir  = "./wal/flags"
	flagSegmentLimit = 100
	flagMaxSegments  = 10
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("flag store is closed")

func getFlagsDir(dir string) string {
	if dir != "" {
		return dir
	}
	if stateDir := os.Getenv("OBCHART_STATE_DIR"); stateDir != "" {
		return stateDir
	}
	return defaultFlagsDir
}

// WALStore keeps flags in a WAL. The log is replayed on open and the latest write of a key wins.
type WALStore struct {
	wal    *gowal.Wal
	values map[string]string
	mu     sync.RWMutex
}

// NewWALStore opens (or creates) the flag log under dir.
func NewWALStore(dir string) (*WALStore, error) {
	cfg := gowal.Config{
		Dir:              getFlagsDir(dir),
		Prefix:           "flags_",
		SegmentThreshold: flagSegmentLimit,
		MaxSegments:      flagMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init flags WAL")
	}

	values := make(map[string]string)
	for m := range wal.Iterator() {
		values[m.Key] = string(m.Value)
	}

	return &WALStore{wal: wal, values: values}, nil
}

// Get returns the value of key.
func (s *WALStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal == nil {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set appends key=value to the log.
func (s *WALStore) Set(key, value string) error {
	if key == "" {
		return errors.New("flag key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(key, value)
}

// SetIfAbsent appends key=value only when key has no value yet.
// It reports whether the value was written.
func (s *WALStore) SetIfAbsent(key, value string) (bool, error) {
	if key == "" {
		return false, errors.New("flag key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return false, ErrClosed
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	if err := s.writeLocked(key, value); err != nil {
		return false, err
	}

	return true, nil
}

func (s *WALStore) writeLocked(key, value string) error {
	if s.wal == nil {
		return ErrClosed
	}
	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, []byte(value)); err != nil {
		return errors.Wrapf(err, "write flag %s", key)
	}
	s.values[key] = value

	return nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wal == nil {
		return ErrClosed
	}
	err := s.wal.Close()
	s.wal = nil

	return err
}
