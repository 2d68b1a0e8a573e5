package pipeline

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"vodpack/internal/database"
)

const DefaultJobTTL = 7 * 24 * time.Hour

// Tracker keeps job records in a key/value database for status queries.
type Tracker struct {
	db  database.Database
	ttl time.Duration
}

func NewTracker(db database.Database, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &Tracker{db: db, ttl: ttl}
}

func (t *Tracker) Save(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errors.Wrapf(err, "unable to encode job %s", job.ID)
	}

	return errors.Wrapf(t.db.Set(jobKey(job.ID), string(data), t.ttl), "unable to save job %s", job.ID)
}

func (t *Tracker) Load(id string) (*Job, error) {
	data, err := t.db.Get(jobKey(id))
	if err == database.ErrNotFound {
		return nil, ErrUnknownJob
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load job %s", id)
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, errors.Wrapf(err, "unable to decode job %s", id)
	}

	return &job, nil
}

func jobKey(id string) string {
	return "job:" + id
}
