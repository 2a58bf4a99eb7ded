// Package model defines the core data structures for wisp.
package model

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SchemaVersion is the current record schema version.
const SchemaVersion = 1

// Edge identifies one of the nine screen positions a popup anchors to.
type Edge string

const (
	EdgeTopLeft     Edge = "top-left"
	EdgeTop         Edge = "top"
	EdgeTopRight    Edge = "top-right"
	EdgeLeft        Edge = "left"
	EdgeCenter      Edge = "center"
	EdgeRight       Edge = "right"
	EdgeBottomLeft  Edge = "bottom-left"
	EdgeBottom      Edge = "bottom"
	EdgeBottomRight Edge = "bottom-right"
)

// ValidEdges returns all valid edge values.
func ValidEdges() []Edge {
	return []Edge{
		EdgeTopLeft, EdgeTop, EdgeTopRight,
		EdgeLeft, EdgeCenter, EdgeRight,
		EdgeBottomLeft, EdgeBottom, EdgeBottomRight,
	}
}

// Valid reports whether e is one of the nine edge keys.
func (e Edge) Valid() bool {
	for _, v := range ValidEdges() {
		if e == v {
			return true
		}
	}
	return false
}

// BottomAnchored reports whether popups at this edge stack upward from
// the bottom of the screen.
func (e Edge) BottomAnchored() bool {
	switch e {
	case EdgeBottomLeft, EdgeBottom, EdgeBottomRight:
		return true
	}
	return false
}

// Record is the persisted metadata for one currently-visible popup.
// One record file exists in the state directory per live popup process.
type Record struct {
	Schema    int    `json:"wisp_schema"`
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Class     string `json:"class,omitempty"`
	Edge      Edge   `json:"edge"`
	Offset    int    `json:"offset"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Summary   string `json:"summary,omitempty"`
	PID       int    `json:"pid"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
	TimeoutMs int64  `json:"timeout_ms"` // 0 = never expires
}

// Validation errors.
var (
	ErrEmptyID      = errors.New("record id cannot be empty")
	ErrInvalidEdge  = errors.New("record edge is not a valid anchor")
	ErrInvalidSize  = errors.New("record size must be positive")
	ErrNoTimestamp  = errors.New("record created_at must be greater than 0")
	ErrBadSchema    = errors.New("unsupported record schema version")
	ErrNotARecord   = errors.New("data is not a wisp record")
)

// DecodeError reports a record that could not be decoded. Callers treat
// the record as stale and eligible for removal, never as a fatal error.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewID generates a fresh ULID record identifier. IDs sort by creation
// time, which keeps file listings in registration order for free.
func NewID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Encode serializes the record to its on-disk form.
func (r Record) Encode() ([]byte, error) {
	r.Schema = SchemaVersion
	return json.Marshal(r)
}

// Decode parses a record from its on-disk form. Truncated or malformed
// input, a missing id, or an unknown schema all yield a *DecodeError.
func Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, &DecodeError{Cause: err}
	}
	if r.Schema <= 0 {
		return Record{}, &DecodeError{Cause: ErrNotARecord}
	}
	if r.Schema > SchemaVersion {
		return Record{}, &DecodeError{Cause: fmt.Errorf("%w: %d", ErrBadSchema, r.Schema)}
	}
	if r.ID == "" {
		return Record{}, &DecodeError{Cause: ErrEmptyID}
	}
	return r, nil
}

// Validate checks that the record has all required fields.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if !r.Edge.Valid() {
		return ErrInvalidEdge
	}
	if r.Width <= 0 || r.Height <= 0 {
		return ErrInvalidSize
	}
	if r.CreatedAt <= 0 {
		return ErrNoTimestamp
	}
	return nil
}

// ExpiresAt returns the expiry instant in unix milliseconds, or 0 when
// the record never expires.
func (r *Record) ExpiresAt() int64 {
	if r.TimeoutMs == 0 {
		return 0
	}
	return r.CreatedAt + r.TimeoutMs
}

// Expired reports whether the record's timeout has elapsed at now.
func (r *Record) Expired(now time.Time) bool {
	exp := r.ExpiresAt()
	return exp != 0 && exp <= now.UnixMilli()
}

// CreatedAtTime returns the registration timestamp as a time.Time.
func (r *Record) CreatedAtTime() time.Time {
	return time.UnixMilli(r.CreatedAt)
}

// Summarize reduces a popup message to its stored summary: the first
// line, trimmed, truncated to 120 characters.
func Summarize(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	line = strings.TrimSpace(line)
	if len(line) > 120 {
		line = line[:120]
	}
	return line
}
