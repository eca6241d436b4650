// Package race runs group races locally and prints their progress.
package race

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/cmd/util"
	"github.com/mpapenbr/async-race-service/pkg/config"
	"github.com/mpapenbr/async-race-service/pkg/garage"
	"github.com/mpapenbr/async-race-service/pkg/race"
	"github.com/mpapenbr/async-race-service/pkg/repository/memory"
)

var (
	numCars     int
	rounds      int
	raceTimeout string
)

func NewRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "runs group races with the sim engine and prints the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			util.SetupLogger(config.LogFormat, config.LogLevel, config.LogConfig)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return runRaces(ctx, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&numCars, "cars", 4, "number of cars in the garage")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "number of races to run")
	cmd.Flags().StringVar(&raceTimeout, "race-timeout", "1m",
		"maximum duration of a single race")
	util.AddSimFlags(cmd)
	return cmd
}

func runRaces(ctx context.Context, out io.Writer) error {
	if numCars <= 0 {
		return race.ErrNoCars
	}
	svc, err := util.NewEngineService()
	if err != nil {
		return err
	}
	repos := memory.NewRepositories(garage.NewGenerator().Cars(numCars)...)
	opts := append(util.ManagerOptions(log.Default()), race.WithRepositories(repos))
	m := race.NewManager(svc, repos.Winner(), opts...)
	defer m.Close()

	r := &runner{
		m:       m,
		out:     out,
		timeout: util.ParseDuration(raceTimeout, time.Minute),
	}
	for i := range rounds {
		fmt.Fprintf(out, "=== race %d/%d ===\n", i+1, rounds)
		if err := r.run(ctx); err != nil {
			return err
		}
	}
	return r.printStandings(ctx)
}
