// Package breakdown converts engine parameters into animation plans.
package breakdown

import (
	"math/rand/v2"
	"time"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

const (
	DefaultScale       = 100.0
	DefaultMinDuration = 3000 * time.Millisecond
	DefaultMaxDuration = 10000 * time.Millisecond
	DefaultLowFraction = 0.2
	DefaultHiFraction  = 1.0
)

type (
	Option func(*Policy)
	Policy struct {
		scale       float64
		minDuration time.Duration
		maxDuration time.Duration
		lowFraction float64
		hiFraction  float64
		random      func() float64
	}

	// Plan describes a single drive animation.
	Plan struct {
		Nominal       float64 // seconds, distance/velocity
		Duration      time.Duration
		WillBreakDown bool
		BreakdownAt   time.Duration // only valid if WillBreakDown
	}
)

// WithScale sets the factor applied to the nominal time (seconds) to get
// the animation duration in milliseconds.
func WithScale(scale float64) Option {
	return func(p *Policy) {
		p.scale = scale
	}
}

func WithBounds(minDuration, maxDuration time.Duration) Option {
	return func(p *Policy) {
		p.minDuration = minDuration
		p.maxDuration = maxDuration
	}
}

// WithFractions sets the range of the breakdown point relative to the duration.
func WithFractions(lo, hi float64) Option {
	return func(p *Policy) {
		p.lowFraction = lo
		p.hiFraction = hi
	}
}

// WithRandom replaces the random source. f must return values in [0,1).
func WithRandom(f func() float64) Option {
	return func(p *Policy) {
		p.random = f
	}
}

func New(opts ...Option) *Policy {
	ret := &Policy{
		scale:       DefaultScale,
		minDuration: DefaultMinDuration,
		maxDuration: DefaultMaxDuration,
		lowFraction: DefaultLowFraction,
		hiFraction:  DefaultHiFraction,
		random:      rand.Float64,
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.maxDuration < ret.minDuration {
		ret.maxDuration = ret.minDuration
	}
	return ret
}

func (p *Policy) NominalTime(params model.EngineParams) float64 {
	return params.NominalTime()
}

// AnimationDuration maps a nominal time in seconds to the wall clock duration
// of the animation.
func (p *Policy) AnimationDuration(nominal float64) time.Duration {
	d := time.Duration(nominal * p.scale * float64(time.Millisecond))
	return min(max(d, p.minDuration), p.maxDuration)
}

func (p *Policy) Plan(params model.EngineParams, willBreakDown bool) Plan {
	nominal := p.NominalTime(params)
	ret := Plan{
		Nominal:       nominal,
		Duration:      p.AnimationDuration(nominal),
		WillBreakDown: willBreakDown,
	}
	if willBreakDown {
		frac := p.lowFraction + p.random()*(p.hiFraction-p.lowFraction)
		ret.BreakdownAt = time.Duration(frac * float64(ret.Duration))
	}
	return ret
}
