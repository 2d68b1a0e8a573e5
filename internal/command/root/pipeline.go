package root

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"vodpack/internal/executor"
	"vodpack/internal/ladder"
	"vodpack/internal/pipeline"
	"vodpack/internal/transcode"
)

// NewRunner assembles the ingestion pipeline from the loaded components and
// the bound flags.
func NewRunner(cmpt *Component, logger *log.Entry) *pipeline.Runner {
	cleanup, err := pipeline.ParseCleanupPolicy(viper.GetString("cleanup"))
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	planner, err := ladder.NewStatic(ladder.Default())
	if err != nil {
		logger.WithError(err).Fatal("invalid rendition ladder")
	}

	engine := transcode.New(transcode.Config{
		FFmpeg:  viper.GetString("ffmpeg"),
		FFprobe: viper.GetString("ffprobe"),
		Timeout: viper.GetDuration("engine-timeout"),
	}, executor.NewExecutor(logger.WithField("component", "ffmpeg")), logger)

	runner, err := pipeline.NewRunner(pipeline.Config{
		AssetRoot:    viper.GetString("asset-root"),
		BaseURL:      viper.GetString("base-url"),
		Cleanup:      cleanup,
		RemoveSource: viper.GetBool("remove-source"),
		Workers:      viper.GetInt("workers"),
	}, pipeline.Deps{
		Planner:  planner,
		Engine:   engine,
		Store:    cmpt.Store,
		Tracker:  pipeline.NewTracker(cmpt.DB, 0),
		Bucket:   cmpt.Bucket,
		Reporter: cmpt.Reporter,
		Metric:   cmpt.Metric,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	return runner
}
