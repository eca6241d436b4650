package util

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/config"
	"github.com/mpapenbr/async-race-service/pkg/engineservice"
	engineHTTP "github.com/mpapenbr/async-race-service/pkg/engineservice/http"
	"github.com/mpapenbr/async-race-service/pkg/engineservice/sim"
	"github.com/mpapenbr/async-race-service/pkg/race"
	"github.com/mpapenbr/async-race-service/pkg/race/animator"
	"github.com/mpapenbr/async-race-service/pkg/race/breakdown"
)

// NewEngineService creates the engine service selected by config.Engine.
func NewEngineService() (engineservice.EngineService, error) {
	switch config.Engine {
	case "", "sim":
		opts := []sim.Option{sim.WithFailureRate(config.BreakdownRate)}
		if config.SimDistance > 0 {
			opts = append(opts, sim.WithDistance(config.SimDistance))
		}
		return sim.New(opts...), nil
	case "http":
		if config.APIURL == "" {
			return nil, errors.New("engine http requires an api url")
		}
		return engineHTTP.NewClient(config.APIURL), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", config.Engine)
	}
}

// NewPolicy creates the breakdown policy from the animation settings.
func NewPolicy() *breakdown.Policy {
	opts := []breakdown.Option{
		breakdown.WithBounds(
			ParseDuration(config.MinDuration, breakdown.DefaultMinDuration),
			ParseDuration(config.MaxDuration, breakdown.DefaultMaxDuration)),
	}
	if config.TimeScale > 0 {
		opts = append(opts, breakdown.WithScale(config.TimeScale))
	}
	return breakdown.New(opts...)
}

// ManagerOptions returns the options shared by all commands running races.
func ManagerOptions(l *log.Logger) []race.Option {
	return []race.Option{
		race.WithPolicy(NewPolicy()),
		race.WithTickInterval(ParseDuration(config.TickInterval, animator.DefaultInterval)),
		race.WithLogger(l.Named("race")),
	}
}

// AddSimFlags registers the animation and sim engine settings.
func AddSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.TickInterval,
		"tick-interval",
		"16ms",
		"animation frame interval")
	cmd.Flags().Float64Var(&config.TimeScale,
		"time-scale",
		100,
		"animation milliseconds per nominal second")
	cmd.Flags().StringVar(&config.MinDuration,
		"min-duration",
		"3s",
		"lower bound of the animation duration")
	cmd.Flags().StringVar(&config.MaxDuration,
		"max-duration",
		"10s",
		"upper bound of the animation duration")
	cmd.Flags().Float64Var(&config.BreakdownRate,
		"breakdown-rate",
		0.3,
		"probability of a denied drive in the sim engine")
	cmd.Flags().Float64Var(&config.SimDistance,
		"sim-distance",
		5000,
		"distance reported by the sim engine")
}
