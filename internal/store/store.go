package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalSentinel/internal/model"
)

var (
	// ErrNotFound is returned when no recommendation has the given id.
	ErrNotFound = errors.New("recommendation not found")
	// ErrNotPending is returned by UpdateStatus when the record already left pending.
	ErrNotPending = errors.New("recommendation is not pending")
)

// PersistenceError wraps a store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Store persists recommendations. Records are never deleted, and status only
// moves from pending to a terminal value.
type Store interface {
	Insert(ctx context.Context, rec *model.Recommendation) error
	Get(ctx context.Context, id string) (*model.Recommendation, error)
	// ListByStatus returns matching records oldest first.
	ListByStatus(ctx context.Context, status model.Status) ([]model.Recommendation, error)
	// ListRecent returns up to limit records newest first; an empty status matches all.
	ListRecent(ctx context.Context, status model.Status, limit int) ([]model.Recommendation, error)
	// ListAll returns every record oldest first.
	ListAll(ctx context.Context) ([]model.Recommendation, error)
	// UpdateStatus moves a pending record to status. It returns ErrNotPending
	// when the record is already terminal.
	UpdateStatus(ctx context.Context, id string, status model.Status, evaluatedAt time.Time) error
	Close() error
}

func validateInsert(rec *model.Recommendation) error {
	if rec.ID == "" {
		return errors.New("id is required")
	}
	if rec.Status != model.StatusPending {
		return fmt.Errorf("new recommendation must be pending, got %q", rec.Status)
	}
	return nil
}

func validateUpdate(status model.Status) error {
	if !status.Terminal() {
		return fmt.Errorf("target status %q is not terminal", status)
	}
	return nil
}
