package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type State string

const (
	Pending   State = "PENDING"
	Running   State = "RUNNING"
	Succeeded State = "SUCCEEDED"
	Failed    State = "FAILED"
)

var (
	ErrNotAvailable      = errors.New("not yet available")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnknownJob        = errors.New("unknown job")
	ErrInvalidTransition = errors.New("invalid state transition")
)

var transitions = map[State][]State{
	Pending: {Running},
	Running: {Succeeded, Failed},
}

func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is one ingestion run of an asset.
type Job struct {
	ID          string    `json:"id" yaml:"id"`
	RunID       string    `json:"runId,omitempty" yaml:"runId,omitempty"`
	AssetID     int64     `json:"assetId" yaml:"assetId"`
	Source      string    `json:"source" yaml:"source"`
	State       State     `json:"state" yaml:"state"`
	Renditions  []string  `json:"renditions,omitempty" yaml:"renditions,omitempty"`
	ManifestURL string    `json:"manifestUrl,omitempty" yaml:"manifestUrl,omitempty"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	SubmittedAt time.Time `json:"submittedAt" yaml:"submittedAt"`
	StartedAt   time.Time `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	FinishedAt  time.Time `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
}

func NewJob(assetID int64, source string) *Job {
	return &Job{
		ID:          uuid.New().String(),
		AssetID:     assetID,
		Source:      source,
		State:       Pending,
		SubmittedAt: time.Now().UTC(),
	}
}

func (j *Job) transition(to State) error {
	if !canTransition(j.State, to) {
		return errors.Wrapf(ErrInvalidTransition, "job %s: %s -> %s", j.ID, j.State, to)
	}

	now := time.Now().UTC()
	switch to {
	case Running:
		j.StartedAt = now
	case Succeeded, Failed:
		j.FinishedAt = now
	}

	j.State = to
	return nil
}

// Ack is returned to the caller of Submit. The run itself happens later.
type Ack struct {
	JobID   string
	AssetID int64
	State   State
}

// PersistenceError means the asset was produced on disk but the metadata store
// rejected the manifest location.
type PersistenceError struct {
	AssetID int64
	Path    string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist manifest of asset %d: %v", e.AssetID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type PublishError struct {
	AssetID int64
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish asset %d: %v", e.AssetID, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
