package status

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"vodpack/internal/command/root"
	"vodpack/internal/pipeline"
	"vodpack/internal/queue"
)

var (
	jobID     string
	showQueue bool
)

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.Flags().StringVar(&jobID, "job", "", "Job id printed by submit")
	cmd.Flags().BoolVar(&showQueue, "queue-depth", false, "Print the ingest queue depth")
}

var cmd = &cobra.Command{
	Use:   "status",
	Short: "Show a job or the ingest queue",
	Run: func(cmd *cobra.Command, args []string) {
		if jobID == "" && !showQueue {
			_ = cmd.Usage()
			os.Exit(1)
		}

		if jobID != "" {
			printJob()
		}

		if showQueue {
			printQueue()
		}
	},
}

func printJob() {
	cmpt := root.GetComponent(true, false, false, false)
	defer cmpt.Close()

	job, err := pipeline.NewTracker(cmpt.DB, 0).Load(jobID)
	if err == pipeline.ErrUnknownJob {
		fmt.Fprintf(os.Stderr, "job %s: %v\n", jobID, err)
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Fatal("unable to read job")
	}

	out, err := yaml.Marshal(job)
	if err != nil {
		log.WithError(err).Fatal("unable to print job")
	}
	fmt.Print(string(out))
}

func printQueue() {
	api := viper.GetString("rabbitmq-api")

	inspector, err := queue.NewInspector(api, viper.GetString("rabbitmq-user"), viper.GetString("rabbitmq-password"))
	if err != nil {
		log.WithError(err).Fatal("unable to reach rabbitmq")
	}

	stats, err := inspector.Stats(viper.GetString("queue"))
	if err != nil {
		log.WithError(err).Fatal("unable to read queue")
	}

	log.WithFields(log.Fields{
		"ready":     stats.Ready,
		"unacked":   stats.Unacked,
		"total":     stats.Total,
		"consumers": stats.Consumers,
	}).Info(viper.GetString("queue"))
}

