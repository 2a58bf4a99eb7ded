// Package store implements the shared state directory: one record file
// per currently-visible popup. There is no daemon and no long-held
// lock; the atomicity of directory entry creation and deletion is the
// only synchronization between the independent popup processes.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wisp-notify/wisp/internal/model"
)

const (
	recordExt = ".json"

	// maxRegisterAttempts bounds id-collision retries. ULID collisions
	// are theoretical; hitting the bound means the directory is broken
	// in some other way.
	maxRegisterAttempts = 8
)

// ErrRegisterExhausted is returned when no record file could be claimed
// after repeated id collisions.
var ErrRegisterExhausted = errors.New("store: exhausted registration attempts")

// Store is a directory of per-popup record files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// DefaultDir returns the default state directory: $XDG_STATE_HOME/wisp,
// falling back to ~/.local/state/wisp.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "wisp"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "wisp"), nil
}

// Open creates the state directory if needed and returns a Store for it.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// RecordPath returns the file path a record with the given id occupies.
func (s *Store) RecordPath(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

// Handle is a live registration tied to the owning process. Closing it
// removes the record.
type Handle struct {
	store *Store
	id    string
}

// ID returns the registered record id.
func (h *Handle) ID() string {
	return h.id
}

// Path returns the record file path, for callers that watch it.
func (h *Handle) Path() string {
	return h.store.RecordPath(h.id)
}

// Close removes the record from the store. Idempotent.
func (h *Handle) Close() error {
	return h.store.Remove(h.id)
}

// Register claims a record file for rec. The record is written in full
// to a hidden temp file, then linked to its final name: link fails if
// the id is already claimed, and a concurrent List can never observe a
// partially written record. On collision a fresh id is generated and
// the write retried. The record's ID field is (re)assigned here.
func (s *Store) Register(rec model.Record) (*Handle, error) {
	for attempt := 0; attempt < maxRegisterAttempts; attempt++ {
		if rec.ID == "" || attempt > 0 {
			rec.ID = model.NewID()
		}
		data, err := rec.Encode()
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}

		tmp := filepath.Join(s.dir, ".wisp-"+rec.ID)
		if err := os.WriteFile(tmp, data, 0600); err != nil {
			return nil, fmt.Errorf("write record: %w", err)
		}

		err = os.Link(tmp, s.RecordPath(rec.ID))
		os.Remove(tmp)
		if err == nil {
			s.logger.Debug("registered record", "id", rec.ID, "edge", rec.Edge, "offset", rec.Offset)
			return &Handle{store: s, id: rec.ID}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("claim record %s: %w", rec.ID, err)
		}
		s.logger.Debug("record id collision, retrying", "id", rec.ID)
	}
	return nil, ErrRegisterExhausted
}

// List returns all live records sorted by registration order. Records
// that fail to decode, are past their expiry, or whose owning process
// is gone are treated as stale: excluded from the result and
// opportunistically removed.
func (s *Store) List() ([]model.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read state dir %s: %w", s.dir, err)
	}

	now := time.Now()
	var records []model.Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			// Raced with the owner's teardown.
			continue
		}
		rec, err := model.Decode(data)
		if err != nil {
			s.reap(path, "undecodable")
			continue
		}
		if rec.Expired(now) {
			s.reap(path, "expired")
			continue
		}
		if !Alive(rec.PID) {
			s.reap(path, "owner gone")
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// reap removes a stale record file, best effort.
func (s *Store) reap(path, reason string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("failed to reap stale record", "path", path, "reason", reason, "error", err)
		return
	}
	s.logger.Debug("reaped stale record", "path", path, "reason", reason)
}

// Remove deletes the record file for id. Removing an absent record is
// not an error.
func (s *Store) Remove(id string) error {
	err := os.Remove(s.RecordPath(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove record %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a record file for id is present.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.RecordPath(id))
	return err == nil
}

// By names a record field a Selector matches on.
type By string

const (
	ByID    By = "id"
	ByName  By = "name"
	ByClass By = "class"
)

// Selector matches records by id, name, or class.
type Selector struct {
	By    By
	Value string
}

// Matches reports whether rec is selected.
func (sel Selector) Matches(rec model.Record) bool {
	switch sel.By {
	case ByID:
		return rec.ID == sel.Value
	case ByName:
		return rec.Name != "" && rec.Name == sel.Value
	case ByClass:
		return rec.Class != "" && rec.Class == sel.Value
	}
	return false
}

// Find returns the live records matching sel, in registration order.
func (s *Store) Find(sel Selector) ([]model.Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	var matched []model.Record
	for _, rec := range records {
		if sel.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// Alive reports whether the process owning a record still runs. A zero
// pid is treated as alive (records written by fixtures or tooling).
// EPERM means the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return true
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
