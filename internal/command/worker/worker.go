package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vodpack/internal/command/root"
	"vodpack/internal/pipeline"
	"vodpack/internal/signal"
)

var (
	logger = log.WithFields(log.Fields{
		"app":     "worker",
		"version": "dev",
	})
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.Flags().Duration("drain-timeout", 30*time.Minute, "How long to wait for running jobs on shutdown")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		logger.WithError(err).Fatal("flag biding failed")
	}
}

var cmd = &cobra.Command{
	Use:   "worker",
	Short: "Run queued ingest jobs",
	Long:  `Consume ingest requests and transcode, package and register every submitted episode`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("starting worker")

		cmpt := root.GetComponent(true, true, true, true)
		defer cmpt.Close()

		runner := root.NewRunner(cmpt, logger)
		orchestrator := pipeline.NewOrchestrator(runner, cmpt.Queue)

		ctx := signal.WatchInterrupt(context.Background(), viper.GetDuration("drain-timeout")+5*time.Second)

		go cmpt.Metric.Ticker(ctx, 10*time.Second)

		if err := orchestrator.Start(); err != nil {
			logger.WithError(err).Fatal("unable to start workers")
		}

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("drain-timeout"))
		defer cancel()

		if err := orchestrator.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("worker stopped with jobs in progress")
			return
		}

		logger.Info("worker stopped")
	},
}
