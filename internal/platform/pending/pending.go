// Package pending holds not-yet-committed form submissions between the input
// step and the confirm step of a workflow. Every change is keyed by
// (session id, kind): a session never sees another session's changes, and a
// new submission for a kind replaces the previous one.
package pending

import (
	"context"
	"errors"
	"maps"
	"time"
)

// Kind names the record category a change belongs to.
type Kind string

const (
	KindEmployee  Kind = "employee"
	KindPassword  Kind = "password"
	KindHospital  Kind = "hospital"
	KindSupplier  Kind = "supplier"
	KindPatient   Kind = "patient"
	KindInsurance Kind = "insurance"
	KindTreatment Kind = "treatment"
)

// Mode distinguishes registering a new record from editing an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

var (
	ErrNotFound  = errors.New("pending change not found")
	ErrNoSession = errors.New("pending change: empty session id")
	// ErrTokenMismatch is returned by Take when the staged change is not the
	// one the caller reviewed.
	ErrTokenMismatch = errors.New("pending change token mismatch")
)

// Change is one staged submission. Fields hold validated, normalized values:
// string, int64, bool or time.Time.
type Change struct {
	Kind     Kind
	Mode     Mode
	TargetID string
	Token    string
	Fields   map[string]any
	StagedAt time.Time
}

// Clone returns a copy whose Fields map can be modified independently.
func (c *Change) Clone() *Change {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Fields = maps.Clone(c.Fields)
	return &cp
}

// Store is the session-scoped pending change contract.
type Store interface {
	// Put stages ch, replacing any change already held for (sessionID, kind).
	Put(ctx context.Context, sessionID string, kind Kind, ch *Change) error
	// Get returns ErrNotFound when nothing is staged or the change expired.
	Get(ctx context.Context, sessionID string, kind Kind) (*Change, error)
	// Clear is idempotent.
	Clear(ctx context.Context, sessionID string, kind Kind) error
	// ClearSession drops every change of a session, used on logout.
	ClearSession(ctx context.Context, sessionID string) error
	// Take atomically removes and returns the change held for
	// (sessionID, kind) if its token equals token. Of two concurrent calls
	// with the same token at most one succeeds. A change with another token
	// is left in place and ErrTokenMismatch returned.
	Take(ctx context.Context, sessionID string, kind Kind, token string) (*Change, error)
	// Restore puts back a change removed by Take, unless a newer change was
	// staged for (sessionID, kind) in the meantime.
	Restore(ctx context.Context, sessionID string, kind Kind, ch *Change) error
}

// Sealer encrypts payloads at rest. *hipaa.EncryptionService satisfies it.
type Sealer interface {
	Seal(data, aad []byte) ([]byte, error)
	Open(data, aad []byte) ([]byte, error)
}

func checkKey(sessionID string, kind Kind) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if kind == "" {
		return errors.New("pending change: empty kind")
	}
	return nil
}

func checkPut(sessionID string, kind Kind, ch *Change) error {
	if err := checkKey(sessionID, kind); err != nil {
		return err
	}
	if ch == nil {
		return errors.New("pending change: nil change")
	}
	return nil
}

func expired(stagedAt, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(stagedAt) >= ttl
}
