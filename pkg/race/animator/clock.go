package animator

import "time"

type (
	Clock interface {
		Now() time.Time
		NewTicker(d time.Duration) Ticker
	}
	Ticker interface {
		C() <-chan time.Time
		Stop()
	}
)

// RealClock uses the wall clock of the machine.
var RealClock Clock = realClock{}

type (
	realClock  struct{}
	realTicker struct{ t *time.Ticker }
)

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
