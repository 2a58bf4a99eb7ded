// Package lifecycle drives a single popup from registration through
// display to removal. The controller owns the popup's record in the
// state store and reacts to whichever end condition arrives first:
// timeout expiry, pointer dismissal, a termination signal, or the
// record file vanishing underneath it.
package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wisp-notify/wisp/internal/model"
	"github.com/wisp-notify/wisp/internal/placement"
	"github.com/wisp-notify/wisp/internal/store"
)

// State names a phase of the popup lifecycle.
type State int

const (
	StatePending State = iota
	StateRegistered
	StateDisplayed
	StateExpiring
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRegistered:
		return "registered"
	case StateDisplayed:
		return "displayed"
	case StateExpiring:
		return "expiring"
	case StateRemoved:
		return "removed"
	}
	return "unknown"
}

// Surface is the rendering side of one popup. The concrete
// implementation lives in the surface package; tests substitute a fake.
type Surface interface {
	// Size reports the measured dimensions before the surface is mapped.
	Size() (width, height int)
	// Show anchors the surface at the given stacking offset and maps it.
	Show(offset int) error
	// Dismissed reports whether the user has clicked the surface.
	Dismissed() bool
	// Dispatch pumps pending display events for up to d.
	Dispatch(d time.Duration)
	// Destroy unmaps and releases the surface. Safe to call twice.
	Destroy()
}

// Request carries everything the controller needs for one popup.
type Request struct {
	Message string
	Name    string
	Class   string
	Edge    model.Edge

	// Timeout zero means the popup never expires on its own.
	Timeout time.Duration

	// Stack false keeps the popup out of the shared state directory, so
	// peers place themselves as if it did not exist.
	Stack bool

	Gap           int
	DefaultOffset int
}

const dispatchInterval = 10 * time.Millisecond

// Controller runs popup lifecycles against one state store.
type Controller struct {
	store  *store.Store
	logger *slog.Logger
	state  State
}

func New(s *store.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: s, logger: logger, state: StatePending}
}

// State reports the phase the last Run reached.
func (c *Controller) State() State {
	return c.state
}

// Run takes one popup through its full lifecycle. The surface is built
// by create so that a creation failure never leaves a record behind,
// and a registration failure never maps a surface. Run returns once the
// surface is gone and the record, if any, has been removed.
func (c *Controller) Run(ctx context.Context, req Request, create func() (Surface, error)) error {
	c.transition(StatePending)

	surf, err := create()
	if err != nil {
		return err
	}
	defer surf.Destroy()

	width, height := surf.Size()

	var handle *store.Handle
	if req.Stack && req.Timeout > 0 {
		siblings, err := c.store.List()
		if err != nil {
			return err
		}
		offset := placement.Offset(req.Edge, siblings, req.Gap, req.DefaultOffset, height)

		handle, err = c.store.Register(model.Record{
			Name:      req.Name,
			Class:     req.Class,
			Edge:      req.Edge,
			Offset:    offset,
			Width:     width,
			Height:    height,
			Summary:   model.Summarize(req.Message),
			PID:       os.Getpid(),
			CreatedAt: time.Now().UnixMilli(),
			TimeoutMs: req.Timeout.Milliseconds(),
		})
		if err != nil {
			return err
		}
		c.transition(StateRegistered)

		if err := surf.Show(offset); err != nil {
			c.teardown(surf, handle)
			return err
		}
	} else {
		// Unstacked popups reuse the default offset without claiming a
		// slot of their own.
		if err := surf.Show(req.DefaultOffset); err != nil {
			return err
		}
	}
	c.transition(StateDisplayed)

	reason := c.wait(ctx, req, surf, handle)
	c.logger.Debug("popup lifecycle ending", "reason", reason)

	c.teardown(surf, handle)
	return nil
}

// wait blocks in Displayed until an end condition fires and names it.
func (c *Controller) wait(ctx context.Context, req Request, surf Surface, handle *store.Handle) string {
	var expire <-chan time.Time
	if req.Timeout > 0 {
		t := time.NewTimer(req.Timeout)
		defer t.Stop()
		expire = t.C
	}

	var events chan fsnotify.Event
	var watchErrs chan error
	if handle != nil {
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			defer watcher.Close()
			err = watcher.Add(c.store.Dir())
		}
		if err != nil {
			// Degrade to timeout and signal handling only.
			c.logger.Debug("state directory watch unavailable", "error", err)
		} else {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	for {
		surf.Dispatch(dispatchInterval)
		if surf.Dismissed() {
			return "dismissed"
		}
		select {
		case <-ctx.Done():
			return "terminated"
		case <-expire:
			return "expired"
		case ev := <-events:
			if ev.Name == handle.Path() && ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return "record removed"
			}
		case err := <-watchErrs:
			c.logger.Debug("state directory watch error", "error", err)
		default:
		}
	}
}

// teardown destroys the surface before releasing the record so a peer
// reclaiming the slot never overlaps a still-mapped popup.
func (c *Controller) teardown(surf Surface, handle *store.Handle) {
	c.transition(StateExpiring)
	surf.Destroy()
	if handle != nil {
		if err := handle.Close(); err != nil {
			c.logger.Warn("failed to remove popup record", "id", handle.ID(), "error", err)
		}
	}
	c.transition(StateRemoved)
}

func (c *Controller) transition(next State) {
	if next == c.state {
		return
	}
	c.logger.Debug("lifecycle transition", "from", c.state, "to", next)
	c.state = next
}
