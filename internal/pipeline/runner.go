package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodpack/internal/database"
	"vodpack/internal/exceptions"
	"vodpack/internal/ladder"
	"vodpack/internal/layout"
	"vodpack/internal/manifest"
	"vodpack/internal/metric"
	"vodpack/internal/storage"
	"vodpack/internal/transcode"
	"vodpack/internal/util"
)

// Engine produces one rendition of a source into a directory.
type Engine interface {
	Execute(ctx context.Context, source string, r ladder.Rendition, outputDir string) (*transcode.Output, error)
}

// Deps are the collaborators of a Runner. Planner, Tracker, Reporter, Metric
// and Logger fall back to defaults when nil; Bucket is optional.
type Deps struct {
	Planner  ladder.Planner
	Engine   Engine
	Store    database.Store
	Tracker  *Tracker
	Bucket   storage.Bucket
	Reporter exceptions.Reporter
	Metric   metric.Client
	Logger   *log.Entry
}

type Runner struct {
	cfg      Config
	layout   *layout.Layout
	planner  ladder.Planner
	engine   Engine
	store    database.Store
	tracker  *Tracker
	bucket   storage.Bucket
	reporter exceptions.Reporter
	metric   metric.Client
	logger   *log.Entry
	locks    *assetLocks

	total    *metric.CounterMetric
	failures *metric.CounterMetric
	inflight *metric.GaugeMetric
	hostname string
}

func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	if deps.Engine == nil {
		return nil, errors.New("transcode engine is required")
	}
	if deps.Store == nil {
		return nil, errors.New("metadata store is required")
	}
	if deps.Planner == nil {
		deps.Planner = &ladder.Static{}
	}
	if deps.Tracker == nil {
		deps.Tracker = NewTracker(database.NewMemory(), 0)
	}
	if deps.Reporter == nil {
		deps.Reporter = &exceptions.NoopReporter{}
	}
	if deps.Metric == nil {
		deps.Metric = &metric.Null{}
	}
	if deps.Logger == nil {
		deps.Logger = log.WithField("app", "pipeline")
	}

	hostname, _ := os.Hostname()
	tags := metric.Tags{"hostname": hostname}

	r := &Runner{
		cfg:      cfg,
		layout:   layout.New(cfg.AssetRoot, cfg.BaseURL),
		planner:  deps.Planner,
		engine:   deps.Engine,
		store:    deps.Store,
		tracker:  deps.Tracker,
		bucket:   deps.Bucket,
		reporter: deps.Reporter,
		metric:   deps.Metric,
		logger:   deps.Logger,
		locks:    newAssetLocks(),
		hostname: hostname,

		total:    &metric.CounterMetric{RowMetric: metric.RowMetric{Name: "vodpack_jobs_total", Tags: tags}},
		failures: &metric.CounterMetric{RowMetric: metric.RowMetric{Name: "vodpack_jobs_failed", Tags: tags}},
		inflight: &metric.GaugeMetric{RowMetric: metric.RowMetric{Name: "vodpack_jobs_running", Tags: tags}},
	}

	r.metric.Add(r.total)
	r.metric.Add(r.failures)
	r.metric.Add(r.inflight)

	return r, nil
}

// Run executes job to completion. Runs of the same asset wait for each other.
// The returned error is the one recorded on the job; it has already been
// logged and reported.
func (r *Runner) Run(ctx context.Context, job *Job) error {
	unlock := r.locks.lock(job.AssetID)
	defer unlock()

	job.RunID = uuid.New().String()
	logger := r.logger.WithFields(log.Fields{
		"job":   job.ID,
		"asset": job.AssetID,
	})

	if err := job.transition(Running); err != nil {
		logger.WithError(err).Warn("job not runnable")
		return err
	}
	r.save(job, logger)

	r.recoverPromotions(job.AssetID, logger)

	r.total.Inc()
	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	logger.WithField("source", job.Source).Info("run started")
	started := time.Now()

	url, err := r.run(ctx, job, logger)

	r.metric.Send((&metric.DurationMetric{
		RowMetric: metric.RowMetric{Name: "vodpack_job_duration", Tags: metric.Tags{
			"hostname": r.hostname,
			"asset":    strconv.FormatInt(job.AssetID, 10),
			"state":    string(stateOf(err)),
		}},
		Duration: time.Since(started),
	}).Metric())

	if err != nil {
		r.fail(job, err, logger)
		return err
	}

	job.ManifestURL = url
	_ = job.transition(Succeeded)
	r.save(job, logger)

	logger.WithFields(log.Fields{
		"manifest": url,
		"duration": time.Since(started),
	}).Info("run succeeded")

	if r.cfg.RemoveSource {
		if err := os.Remove(job.Source); err != nil && !os.IsNotExist(err) {
			logger.WithError(err).Warn("unable to remove source")
		}
	}

	return nil
}

func (r *Runner) run(ctx context.Context, job *Job, logger *log.Entry) (string, error) {
	renditions, err := r.planner.Plan(ctx, job.Source)
	if err != nil {
		return "", err
	}

	staging := r.layout.StagingDirFor(job.AssetID, job.RunID)

	for _, rendition := range renditions {
		out, err := r.engine.Execute(ctx, job.Source, rendition, filepath.Join(staging, rendition.Label))
		if err != nil {
			r.discard(staging, logger)
			return "", err
		}

		r.metric.Send((&metric.DurationMetric{
			RowMetric: metric.RowMetric{Name: "vodpack_rendition_duration", Tags: metric.Tags{
				"hostname":  r.hostname,
				"rendition": rendition.Label,
			}},
			Duration: out.Elapsed,
		}).Metric())

		job.Renditions = append(job.Renditions, rendition.Label)
		r.save(job, logger)
	}

	text, err := manifest.Build(renditions, job.Renditions)
	if err != nil {
		r.discard(staging, logger)
		return "", err
	}

	promotion := newPromotion(r.layout, job.AssetID, staging)
	for _, rendition := range renditions {
		if err := promotion.promote(rendition.Label); err != nil {
			promotion.rollback(logger)
			r.discard(staging, logger)
			return "", err
		}
	}

	if err := manifest.Write(r.layout.ManifestPath(job.AssetID), text); err != nil {
		promotion.rollback(logger)
		r.discard(staging, logger)
		return "", err
	}

	// the manifest is in place, replaced renditions are no longer needed
	if err := os.RemoveAll(staging); err != nil {
		logger.WithError(err).Warn("unable to remove staging directory")
	}

	if r.bucket != nil {
		prefix := strconv.FormatInt(job.AssetID, 10)
		if err := r.bucket.Delete(ctx, prefix+"/"); err != nil {
			return "", &PublishError{AssetID: job.AssetID, Err: err}
		}
		count, err := util.UploadTree(ctx, r.bucket, r.layout.RootFor(job.AssetID), prefix, layout.ManifestName)
		if err != nil {
			return "", &PublishError{AssetID: job.AssetID, Err: err}
		}
		logger.WithField("files", count).Info("asset published")
	}

	url := r.layout.URLFor(job.AssetID)
	if err := r.store.UpsertManifestPath(ctx, job.AssetID, url); err != nil {
		return "", &PersistenceError{AssetID: job.AssetID, Path: url, Err: err}
	}

	return url, nil
}

func (r *Runner) fail(job *Job, err error, logger *log.Entry) {
	job.Error = err.Error()
	_ = job.transition(Failed)
	r.save(job, logger)

	r.failures.Inc()

	fields := log.Fields{}

	var engineErr *transcode.EngineError
	var persistErr *PersistenceError
	switch {
	case errors.As(err, &engineErr):
		fields["rendition"] = engineErr.Rendition
		fields["exit_code"] = engineErr.ExitCode
		fields["diagnostic"] = engineErr.Diagnostic
	case errors.As(err, &persistErr):
		// the files are in place, only the metadata is missing
		fields["manifest"] = persistErr.Path
	}

	logger.WithError(err).WithFields(fields).Error("run failed")

	r.reporter.ReportException(err, exceptions.Tags{
		"job":   job.ID,
		"asset": strconv.FormatInt(job.AssetID, 10),
	})
}

func (r *Runner) discard(staging string, logger *log.Entry) {
	if r.cfg.Cleanup != CleanupRemove {
		logger.WithField("staging", staging).Info("keeping partial output")
		return
	}

	if err := os.RemoveAll(staging); err != nil {
		logger.WithError(err).Warn("unable to remove partial output")
	}
}

func (r *Runner) save(job *Job, logger *log.Entry) {
	if err := r.tracker.Save(job); err != nil {
		logger.WithError(err).Warn("unable to track job")
	}
}

func stateOf(err error) State {
	if err != nil {
		return Failed
	}
	return Succeeded
}
