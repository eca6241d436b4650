// Package animator moves a car along the track based on elapsed wall clock time.
package animator

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/async-race-service/pkg/race/breakdown"
)

const DefaultInterval = 16 * time.Millisecond

type State int

const (
	Running State = iota
	Finished
	BrokenDown
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case BrokenDown:
		return "brokenDown"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == Finished || s == BrokenDown
}

type (
	// Frame is the result of a single tick.
	// For Finished frames RaceTime holds the final time.
	Frame struct {
		State    State
		Position float64 // 0..100
		RaceTime float64
		Elapsed  time.Duration
	}

	// Handler receives every frame. It must not call back into the animation.
	Handler func(Frame)

	Option    func(*Animation)
	Animation struct {
		plan     breakdown.Plan
		handler  Handler
		clock    Clock
		interval time.Duration

		mu    sync.Mutex
		start time.Time
		last  Frame
		stop  chan struct{}
		done  chan struct{}
		once  sync.Once
	}
)

func WithClock(c Clock) Option {
	return func(a *Animation) {
		a.clock = c
	}
}

func WithInterval(d time.Duration) Option {
	return func(a *Animation) {
		if d > 0 {
			a.interval = d
		}
	}
}

func New(plan breakdown.Plan, handler Handler, opts ...Option) *Animation {
	ret := &Animation{
		plan:     plan,
		handler:  handler,
		clock:    RealClock,
		interval: DefaultInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Start begins the animation. Cancelling ctx is equivalent to Cancel.
func (a *Animation) Start(ctx context.Context) {
	a.mu.Lock()
	a.start = a.clock.Now()
	a.mu.Unlock()
	t := a.clock.NewTicker(a.interval)
	go a.run(ctx, t)
}

// Cancel stops the animation. No handler call happens after Cancel returns.
// Returns false if the animation already ended.
func (a *Animation) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last.State != Running {
		return false
	}
	a.last.State = Cancelled
	a.once.Do(func() { close(a.stop) })
	return true
}

// Done is closed once the animation goroutine exited.
func (a *Animation) Done() <-chan struct{} {
	return a.done
}

// Outcome returns the last frame.
func (a *Animation) Outcome() Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Animation) Plan() breakdown.Plan {
	return a.plan
}

func (a *Animation) run(ctx context.Context, t Ticker) {
	defer close(a.done)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			a.Cancel()
			return
		case <-a.stop:
			return
		case now := <-t.C():
			if a.step(now) {
				return
			}
		}
	}
}

func (a *Animation) step(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last.State != Running {
		return true
	}
	f := a.frame(max(now.Sub(a.start), 0))
	a.last = f
	a.handler(f)
	return f.State != Running
}

func (a *Animation) frame(elapsed time.Duration) Frame {
	p := a.plan
	if p.WillBreakDown && elapsed >= p.BreakdownAt {
		progress := 1.0
		if p.Duration > 0 {
			progress = min(float64(p.BreakdownAt)/float64(p.Duration), 1)
		}
		return Frame{
			State:    BrokenDown,
			Position: progress * 100,
			RaceTime: progress * p.Nominal,
			Elapsed:  p.BreakdownAt,
		}
	}
	progress := 1.0
	if p.Duration > 0 {
		progress = min(float64(elapsed)/float64(p.Duration), 1)
	}
	if progress >= 1 {
		return Frame{State: Finished, Position: 100, RaceTime: p.Nominal, Elapsed: elapsed}
	}
	return Frame{
		State:    Running,
		Position: progress * 100,
		RaceTime: progress * p.Nominal,
		Elapsed:  elapsed,
	}
}
