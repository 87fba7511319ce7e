// Package status tracks the lifecycle of each pipeline run:
// Received -> Processing -> Completed | Error. Terminal states never change.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/papercast/internal/failure"
)

// Status is the persisted lifecycle state of a run.
type Status string

const (
	Received   Status = "Received"
	Processing Status = "Processing"
	Completed  Status = "Completed"
	Error      Status = "Error"
)

var (
	// ErrNotFound is returned for an unknown run id.
	ErrNotFound = errors.New("run not found")
	// ErrInvalidTransition is returned when a change would move a run
	// backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == Completed || s == Error
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case Received:
		return to == Processing || to == Error
	case Processing:
		return to == Completed || to == Error
	}
	return false
}

// RunStatus is the externally visible record of one run.
type RunStatus struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	FileName    string       `json:"fileName,omitempty"`
	Method      string       `json:"summarizationMethod,omitempty"`
	Title       string       `json:"title,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Duration    float64      `json:"durationSeconds,omitempty"`
	AudioURL    string       `json:"audioUrl,omitempty"`
	MetadataURL string       `json:"metadataUrl,omitempty"`
	TOCURL      string       `json:"tocUrl,omitempty"`
	ItemsURL    string       `json:"itemsUrl,omitempty"`
	CallsURL    string       `json:"callsUrl,omitempty"`
	ErrorLogURL string       `json:"errorLogUrl,omitempty"`
	ErrorType   failure.Type `json:"errorType,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// Store persists run records.
type Store interface {
	Get(ctx context.Context, id string) (*RunStatus, error)
	Put(ctx context.Context, rs *RunStatus) error
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]*RunStatus, error)
	Close() error
}

// Recorder is the only writer of run records. It enforces the transition
// rules on top of any Store.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder wraps store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// Store returns the underlying store.
func (r *Recorder) Store() Store {
	return r.store
}

// Create records a new run in the Received state.
func (r *Recorder) Create(ctx context.Context, id, fileName, method string) (*RunStatus, error) {
	if _, err := r.store.Get(ctx, id); err == nil {
		return nil, fmt.Errorf("run %s already exists", id)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := r.now().UTC()
	rs := &RunStatus{
		ID:        id,
		Status:    Received,
		FileName:  fileName,
		Method:    method,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Put(ctx, rs); err != nil {
		return nil, err
	}
	r.logger.Info("run received", "run_id", id, "file", fileName)
	return rs, nil
}

// Get returns the current record for id.
func (r *Recorder) Get(ctx context.Context, id string) (*RunStatus, error) {
	return r.store.Get(ctx, id)
}

// Transition moves run id to status to, applying update to the record first.
func (r *Recorder) Transition(ctx context.Context, id string, to Status, update func(*RunStatus)) (*RunStatus, error) {
	rs, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(rs.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rs.Status, to)
	}
	if update != nil {
		update(rs)
	}
	rs.ID = id
	rs.Status = to
	rs.UpdatedAt = r.now().UTC()
	if to.Terminal() {
		done := rs.UpdatedAt
		rs.CompletedAt = &done
	}
	if err := r.store.Put(ctx, rs); err != nil {
		return nil, err
	}
	r.logger.Info("run status changed", "run_id", id, "status", to)
	return rs, nil
}

// Start moves a received run to Processing.
func (r *Recorder) Start(ctx context.Context, id string) error {
	_, err := r.Transition(ctx, id, Processing, nil)
	return err
}

// Complete moves a run to Completed.
func (r *Recorder) Complete(ctx context.Context, id string, update func(*RunStatus)) error {
	_, err := r.Transition(ctx, id, Completed, update)
	return err
}

// Fail moves a run to Error with the failure type carried by cause.
func (r *Recorder) Fail(ctx context.Context, id string, cause error, update func(*RunStatus)) error {
	_, err := r.Transition(ctx, id, Error, func(rs *RunStatus) {
		rs.ErrorType = failure.TypeOf(cause)
		if cause != nil {
			rs.Message = cause.Error()
		}
		if update != nil {
			update(rs)
		}
	})
	return err
}

func clone(rs *RunStatus) *RunStatus {
	c := *rs
	if rs.CompletedAt != nil {
		t := *rs.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
