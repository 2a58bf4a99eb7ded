// Package core implements the shared logic behind the list and clear
// commands.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wisp-notify/wisp/internal/model"
	"github.com/wisp-notify/wisp/internal/store"
)

// Defaults for the bounded graceful-teardown wait.
const (
	DefaultWait = 2 * time.Second
	DefaultPoll = 50 * time.Millisecond
)

// ErrOwnerGone indicates the record's owning process no longer exists,
// so a termination request cannot be delivered.
var ErrOwnerGone = errors.New("record owner is gone")

// ClearResult reports the outcome for one targeted record.
type ClearResult struct {
	Record   model.Record
	Graceful bool  // the owner tore down and removed its own record
	Forced   bool  // the record was force-removed by the handler
	Err      error // set when the record could not be removed at all
}

// Cleared reports whether the record is gone, by either path.
func (r ClearResult) Cleared() bool {
	return r.Err == nil
}

// Clearer terminates the popups matching a selector and waits for
// their records to disappear from the store.
type Clearer struct {
	store  *store.Store
	logger *slog.Logger
	wait   time.Duration
	poll   time.Duration
}

// NewClearer returns a Clearer with the default wait bounds.
func NewClearer(s *store.Store, logger *slog.Logger) *Clearer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clearer{store: s, logger: logger, wait: DefaultWait, poll: DefaultPoll}
}

// SetWait overrides the bounded wait, mainly for tests.
func (c *Clearer) SetWait(wait, poll time.Duration) {
	c.wait = wait
	c.poll = poll
}

// Clear terminates every record matching sel. Zero matches is success.
// The returned error covers only store-level failures; per-record
// outcomes are in the results.
func (c *Clearer) Clear(sel store.Selector) ([]ClearResult, error) {
	matches, err := c.store.Find(sel)
	if err != nil {
		return nil, err
	}
	results := make([]ClearResult, 0, len(matches))
	for _, rec := range matches {
		results = append(results, c.clearOne(rec))
	}
	return results, nil
}

// clearOne requests termination, waits for the owner to remove its own
// record within the bound, then force-removes whatever is left.
func (c *Clearer) clearOne(rec model.Record) ClearResult {
	res := ClearResult{Record: rec}

	err := Terminate(rec.PID)
	switch {
	case err == nil:
		deadline := time.Now().Add(c.wait)
		for time.Now().Before(deadline) {
			if !c.store.Exists(rec.ID) {
				res.Graceful = true
				return res
			}
			time.Sleep(c.poll)
		}
		c.logger.Debug("owner did not remove record in time", "id", rec.ID, "pid", rec.PID)
	case errors.Is(err, ErrOwnerGone):
		c.logger.Debug("owner already gone, removing record directly", "id", rec.ID, "pid", rec.PID)
	default:
		c.logger.Warn("termination request failed", "id", rec.ID, "pid", rec.PID, "error", err)
	}

	if err := c.store.Remove(rec.ID); err != nil {
		res.Err = err
		return res
	}
	res.Forced = true
	return res
}

// Terminate delivers a termination request to the process owning a
// record. Returns ErrOwnerGone when the process does not exist or the
// record carries no usable owner handle.
func Terminate(pid int) error {
	if pid <= 0 {
		return ErrOwnerGone
	}
	err := unix.Kill(pid, unix.SIGTERM)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		return ErrOwnerGone
	}
	return fmt.Errorf("signal pid %d: %w", pid, err)
}
