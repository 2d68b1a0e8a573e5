package run

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vodpack/internal/command/root"
	"vodpack/internal/pipeline"
)

var (
	logger = log.WithFields(log.Fields{
		"app":     "run",
		"version": "dev",
	})

	assetID int64
	source  string
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.Flags().Int64Var(&assetID, "asset", 0, "Asset id")
	cmd.Flags().StringVar(&source, "source", "", "Path of the uploaded video")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("source")
}

var cmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest one episode in the foreground",
	Long:  `Run the whole pipeline for one episode without going through the queue`,
	Run: func(cmd *cobra.Command, args []string) {
		if assetID <= 0 || source == "" {
			logger.Fatal("--asset must be positive and --source set")
		}

		cmpt := root.GetComponent(true, false, true, true)
		defer cmpt.Close()

		runner := root.NewRunner(cmpt, logger)
		job := pipeline.NewJob(assetID, source)

		if err := runner.Run(context.Background(), job); err != nil {
			cmpt.Close()
			os.Exit(1)
		}

		fmt.Println(job.ManifestURL)
	},
}
