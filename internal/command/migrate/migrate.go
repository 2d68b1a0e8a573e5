package migrate

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vodpack/internal/command/root"
	"vodpack/internal/database"
)

func init() {
	root.Cmd.AddCommand(cmd)
}

var cmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the episodes table in PostgreSQL",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		db, err := database.NewPostgres(ctx, viper.GetString("postgres-dsn"))
		if err != nil {
			log.WithError(err).Fatal("unable to connect to postgres")
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("migration failed")
		}

		log.Info("episodes table ready")
	},
}
