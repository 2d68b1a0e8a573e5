package submit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vodpack/internal/command/root"
	"vodpack/internal/pipeline"
)

var (
	logger = log.WithFields(log.Fields{
		"app":     "submit",
		"version": "dev",
	})

	assetID int64
	source  string
	wait    time.Duration
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.Flags().Int64Var(&assetID, "asset", 0, "Asset id")
	cmd.Flags().StringVar(&source, "source", "", "Path of the uploaded video")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the job to finish")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("source")
}

var cmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue an episode for ingestion",
	Run: func(cmd *cobra.Command, args []string) {
		if err := checkQueue(viper.GetString("amqp")); err != nil {
			logger.WithError(err).Fatal("unable to submit")
		}

		cmpt := root.GetComponent(true, true, false, false)
		defer cmpt.Close()

		if abs, err := filepath.Abs(source); err == nil {
			source = abs
		}

		orchestrator := pipeline.NewOrchestrator(root.NewRunner(cmpt, logger), cmpt.Queue)

		ack, err := orchestrator.Submit(context.Background(), assetID, source)
		if err != nil {
			logger.WithError(err).Fatal("unable to submit")
		}

		fmt.Println(ack.JobID)

		if wait <= 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()

		job, err := orchestrator.Wait(ctx, ack.JobID, time.Second)
		if err != nil {
			logger.WithError(err).Fatal("job did not finish")
		}

		if job.State != pipeline.Succeeded {
			logger.WithField("job", job.ID).Error(job.Error)
			os.Exit(1)
		}

		fmt.Println(job.ManifestURL)
	},
}

// checkQueue refuses the in-process queue: nothing would consume the job once
// submit exits.
func checkQueue(amqp string) error {
	if amqp == "" {
		return errors.New("submit requires --amqp, an in-process queue has no consumer")
	}

	return nil
}
