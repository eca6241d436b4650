package migrate

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/cmd/util"
	"github.com/mpapenbr/async-race-service/pkg/config"
	dbMigrate "github.com/mpapenbr/async-race-service/pkg/db/migrate"
	"github.com/mpapenbr/async-race-service/pkg/utils"
)

var steps int

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	cmd.Flags().IntVar(&steps,
		"steps",
		0,
		"number of migrations to apply, negative values migrate down (0 means all up)")
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "shows the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(config.LogFormat, config.LogLevel, config.LogConfig)
			waitForDB()
			version, dirty, err := dbMigrate.Version(config.DB)
			if err != nil {
				return err
			}
			log.Info("Schema version", log.Uint64("version", uint64(version)),
				log.Bool("dirty", dirty))
			return nil
		},
	}
}

func startMigration() error {
	util.SetupLogger(config.LogFormat, config.LogLevel, config.LogConfig)
	waitForDB()
	if steps != 0 {
		log.Info("Applying migration steps", log.Int("steps", steps))
		return dbMigrate.Steps(config.DB, steps)
	}
	log.Info("Applying all pending migrations")
	if err := dbMigrate.MigrateDB(config.DB); err != nil {
		log.Error("Migration failed", log.ErrorField(err))
		return err
	}
	log.Info("Migration done")
	return nil
}

func waitForDB() {
	timeout := util.ParseDuration(config.WaitForServices, 60*time.Second)
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err := utils.WaitForTCP(postgresAddr, timeout); err != nil {
		log.Fatal("database not ready", log.ErrorField(err))
	}
}
