package lookup

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vodpack/internal/command/root"
	"vodpack/internal/pipeline"
)

var assetID int64

func init() {
	root.Cmd.AddCommand(cmd)

	cmd.Flags().Int64Var(&assetID, "asset", 0, "Asset id")
	_ = cmd.MarkFlagRequired("asset")
}

var cmd = &cobra.Command{
	Use:   "lookup",
	Short: "Print the manifest URL of an episode",
	Run: func(cmd *cobra.Command, args []string) {
		cmpt := root.GetComponent(true, false, false, false)
		defer cmpt.Close()

		url, err := pipeline.LookupManifestPath(context.Background(), cmpt.Store, assetID)

		if err == pipeline.ErrNotAvailable {
			fmt.Fprintf(os.Stderr, "asset %d: %v\n", assetID, err)
			os.Exit(2)
		}

		if err != nil {
			log.WithError(err).Fatal("lookup failed")
		}

		fmt.Println(url)
	},
}
