package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vodpack/internal/database"
	"vodpack/internal/queue"
)

// Orchestrator accepts ingest requests and runs them in the background on a
// pool of workers fed by a queue.
type Orchestrator struct {
	runner  *Runner
	queue   queue.Queue
	tracker *Tracker
	store   database.Store
	workers int
	logger  *log.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewOrchestrator(runner *Runner, q queue.Queue) *Orchestrator {
	return &Orchestrator{
		runner:  runner,
		queue:   q,
		tracker: runner.tracker,
		store:   runner.store,
		workers: runner.cfg.Workers,
		logger:  runner.logger,
	}
}

// Submit records a pending job and hands it to the workers. It returns as
// soon as the request is queued; the outcome is observable through Status and
// LookupManifestPath.
func (o *Orchestrator) Submit(ctx context.Context, assetID int64, source string) (Ack, error) {
	if assetID <= 0 {
		return Ack{}, errors.Wrapf(ErrInvalidRequest, "asset id must be positive, got %d", assetID)
	}
	if strings.TrimSpace(source) == "" {
		return Ack{}, errors.Wrap(ErrInvalidRequest, "source path is empty")
	}

	job := NewJob(assetID, source)

	if err := o.tracker.Save(job); err != nil {
		return Ack{}, err
	}

	err := o.queue.Publish(ctx, queue.Request{
		JobID:       job.ID,
		AssetID:     job.AssetID,
		Source:      job.Source,
		SubmittedAt: job.SubmittedAt,
	})
	if err != nil {
		return Ack{}, errors.Wrapf(err, "unable to queue job %s", job.ID)
	}

	o.logger.WithFields(log.Fields{
		"job":    job.ID,
		"asset":  assetID,
		"source": source,
	}).Info("job submitted")

	return Ack{JobID: job.ID, AssetID: assetID, State: Pending}, nil
}

// Start launches the workers. It returns once they consume the queue.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.group != nil {
		return errors.New("orchestrator already started")
	}

	ctx, cancel := context.WithCancel(context.Background())

	deliveries, err := o.queue.Consume(ctx)
	if err != nil {
		cancel()
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < o.workers; i++ {
		worker := i
		group.Go(func() error {
			o.logger.WithField("worker", worker).Debug("worker started")
			for d := range deliveries {
				o.handle(groupCtx, d)
			}
			o.logger.WithField("worker", worker).Debug("worker stopped")
			return nil
		})
	}

	o.cancel = cancel
	o.group = group

	o.logger.WithField("workers", o.workers).Info("orchestrator started")
	return nil
}

// Shutdown stops consuming and waits for the runs in progress. A started run
// is never interrupted; ctx only bounds how long Shutdown waits.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	cancel, group := o.cancel, o.group
	o.mu.Unlock()

	if group == nil {
		return nil
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()

	select {
	case err := <-done:
		o.logger.Info("orchestrator stopped")
		return err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "runs still in progress")
	}
}

func (o *Orchestrator) handle(ctx context.Context, d queue.Delivery) {
	req := d.Request()
	logger := o.logger.WithFields(log.Fields{"job": req.JobID, "asset": req.AssetID})

	job, err := o.tracker.Load(req.JobID)
	if err != nil {
		if err != ErrUnknownJob {
			logger.WithError(err).Warn("unable to load job, running from request")
		}
		job = &Job{
			ID:          req.JobID,
			AssetID:     req.AssetID,
			Source:      req.Source,
			State:       Pending,
			SubmittedAt: req.SubmittedAt,
		}
	}

	if job.State == Running {
		// the worker that took it stopped mid-run
		job.Error = "interrupted before completion"
		if err := job.transition(Failed); err == nil {
			if err := o.tracker.Save(job); err != nil {
				logger.WithError(err).Warn("unable to track job")
			}
		}
		logger.Warn("job was interrupted, marked as failed")
		o.ack(d, logger)
		return
	}

	if job.State != Pending {
		logger.WithField("state", job.State).Info("job already handled, skipping")
		o.ack(d, logger)
		return
	}

	// failures are recorded on the job, the request is never redelivered
	_ = o.runner.Run(context.WithoutCancel(ctx), job)
	o.ack(d, logger)
}

func (o *Orchestrator) ack(d queue.Delivery, logger *log.Entry) {
	if err := d.Ack(); err != nil {
		logger.WithError(err).Error("unable to ack request")
	}
}

// LookupManifestPath returns the public manifest URL of the asset, or
// ErrNotAvailable until a run of the asset succeeded.
func (o *Orchestrator) LookupManifestPath(ctx context.Context, assetID int64) (string, error) {
	return LookupManifestPath(ctx, o.store, assetID)
}

func LookupManifestPath(ctx context.Context, store database.Store, assetID int64) (string, error) {
	if assetID <= 0 {
		return "", errors.Wrapf(ErrInvalidRequest, "asset id must be positive, got %d", assetID)
	}

	url, err := store.ManifestPath(ctx, assetID)
	if err == database.ErrNotFound {
		return "", ErrNotAvailable
	}
	if err != nil {
		return "", errors.Wrapf(err, "unable to look up asset %d", assetID)
	}

	return url, nil
}

func (o *Orchestrator) Status(_ context.Context, jobID string) (*Job, error) {
	return o.tracker.Load(jobID)
}

// Wait blocks until job reaches a terminal state, polling the tracker.
func (o *Orchestrator) Wait(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := o.tracker.Load(jobID)
		if err != nil {
			return nil, err
		}
		if job.State.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
