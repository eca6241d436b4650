// Package engine holds the per car engine and drive state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/engineservice"
	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/race/animator"
	"github.com/mpapenbr/async-race-service/pkg/race/breakdown"
)

var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrInvalidState      = errors.New("invalid engine state")
	ErrEngineStopped     = errors.New("engine stopped")
	ErrInvalidParams     = errors.New("invalid engine params")
)

type (
	// Session tells the controller how a car is classified when it starts.
	Session struct {
		ID         string
		Individual bool
	}

	// Result is reported to the observer when a drive reached a terminal state.
	Result struct {
		CarID      int
		Status     model.EngineStatus
		Position   float64
		RaceTime   float64
		SessionID  string
		Individual bool
	}

	Option     func(*Controller)
	Controller struct {
		service  engineservice.EngineService
		policy   *breakdown.Policy
		clock    animator.Clock
		interval time.Duration
		emit     func(model.Event)
		observer func(Result)
		ctx      context.Context
		l        *log.Logger

		mu   sync.Mutex
		cars map[int]*entry
	}

	entry struct {
		mu       sync.Mutex
		state    model.CarState
		params   model.EngineParams
		starting bool
		driving  bool
		gen      uint64
		drive    *drive
	}

	drive struct {
		anim      *animator.Animation
		session   Session
		committed bool
	}
)

func WithPolicy(p *breakdown.Policy) Option {
	return func(c *Controller) {
		c.policy = p
	}
}

func WithClock(clock animator.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithEmitter sets the receiver of engine events.
func WithEmitter(emit func(model.Event)) Option {
	return func(c *Controller) {
		c.emit = emit
	}
}

// WithObserver sets the callback for terminal drive outcomes.
// It is called outside of any controller lock.
func WithObserver(o func(Result)) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithContext sets the context the animations are bound to.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.ctx = ctx
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.l = l
	}
}

func NewController(service engineservice.EngineService, opts ...Option) *Controller {
	ret := &Controller{
		service:  service,
		policy:   breakdown.New(),
		clock:    animator.RealClock,
		interval: animator.DefaultInterval,
		emit:     func(model.Event) {},
		ctx:      context.Background(),
		l:        log.Default().Named("race.engine"),
		cars:     make(map[int]*entry),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// StartEngine contacts the engine service and initializes the car state.
//
//nolint:whitespace // editor/linter issue
func (c *Controller) StartEngine(
	ctx context.Context,
	carID int,
	session Session,
) (*model.CarState, error) {
	e := c.entry(carID, true)
	e.mu.Lock()
	if e.starting || e.state.Racing() {
		e.mu.Unlock()
		return nil, fmt.Errorf("car %d: %w", carID, ErrEngineUnavailable)
	}
	e.starting = true
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	params, err := c.service.Start(ctx, carID)

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return nil, fmt.Errorf("car %d: %w", carID, ErrEngineStopped)
	}
	e.starting = false
	if err == nil && !params.Valid() {
		err = fmt.Errorf("velocity %v, distance %v: %w",
			params.Velocity, params.Distance, ErrInvalidParams)
	}
	if err != nil {
		e.state = model.CarState{CarID: carID, Status: model.EngineIdle}
		e.mu.Unlock()
		c.l.Warn("could not start engine", log.Int("carId", carID), log.ErrorField(err))
		return nil, fmt.Errorf("start engine of car %d: %w", carID, err)
	}
	e.params = *params
	e.state = model.CarState{
		CarID:            carID,
		Status:           model.EngineStarted,
		Velocity:         params.Velocity,
		Distance:         params.Distance,
		IsIndividualRace: session.Individual,
		SessionID:        session.ID,
		StartedAt:        c.clock.Now(),
	}
	snap := e.state
	e.mu.Unlock()

	c.l.Debug("engine started",
		log.Int("carId", carID),
		log.Float64("velocity", params.Velocity),
		log.Float64("distance", params.Distance),
		log.Bool("individual", session.Individual))
	c.emit(c.event(model.EventStarted, &snap))
	return &snap, nil
}

// RequestDrive asks the engine service for permission to drive and starts the
// animation. A denied or failed request results in a breakdown animation.
func (c *Controller) RequestDrive(ctx context.Context, carID int) (*model.CarState, error) {
	e := c.entry(carID, false)
	if e == nil {
		return nil, fmt.Errorf("car %d: %w", carID, ErrInvalidState)
	}
	e.mu.Lock()
	if e.state.Status != model.EngineStarted || e.driving {
		status := e.state.Status
		e.mu.Unlock()
		return nil, fmt.Errorf("car %d in state %q: %w", carID, status, ErrInvalidState)
	}
	e.driving = true
	gen := e.gen
	params := e.params
	session := Session{ID: e.state.SessionID, Individual: e.state.IsIndividualRace}
	e.mu.Unlock()

	success, err := c.service.Drive(ctx, carID)
	if err != nil {
		c.l.Warn("drive request failed", log.Int("carId", carID), log.ErrorField(err))
	}
	fault := err != nil || !success
	plan := c.policy.Plan(params, fault)

	e.mu.Lock()
	if e.gen != gen || e.state.Status != model.EngineStarted {
		e.mu.Unlock()
		return nil, fmt.Errorf("car %d: %w", carID, ErrEngineStopped)
	}
	e.driving = false
	d := &drive{session: session}
	d.anim = animator.New(plan,
		func(f animator.Frame) { c.onFrame(e, d, f) },
		animator.WithClock(c.clock),
		animator.WithInterval(c.interval))
	e.drive = d
	e.state.Status = model.EngineDriving
	e.state.IsAnimating = true
	e.state.IsFinished = false
	e.state.Position = 0
	e.state.RaceTime = 0
	d.anim.Start(c.ctx)
	snap := e.state
	e.mu.Unlock()

	c.l.Debug("car driving",
		log.Int("carId", carID),
		log.Duration("duration", plan.Duration),
		log.Bool("breakdown", plan.WillBreakDown),
		log.Duration("breakdownAt", plan.BreakdownAt))
	ev := c.event(model.EventDriving, &snap)
	ev.DriveFault = fault
	c.emit(ev)
	go c.watch(e, d, carID)
	return &snap, nil
}

// StopEngine cancels a running animation and resets the car. The local reset
// stands even if the engine service reports an error.
func (c *Controller) StopEngine(ctx context.Context, carID int) (*model.CarState, error) {
	e := c.entry(carID, false)
	if e == nil {
		return nil, fmt.Errorf("car %d: %w", carID, ErrInvalidState)
	}
	e.mu.Lock()
	if e.state.Idle() && !e.starting {
		e.mu.Unlock()
		return nil, fmt.Errorf("car %d is idle: %w", carID, ErrInvalidState)
	}
	d := e.reset(model.EngineStopped)
	snap := e.state
	e.mu.Unlock()

	if d != nil {
		d.anim.Cancel()
	}
	c.emit(c.event(model.EventStopped, &snap))
	if err := c.service.Stop(ctx, carID); err != nil {
		c.l.Warn("could not stop engine", log.Int("carId", carID), log.ErrorField(err))
		return &snap, fmt.Errorf("stop engine of car %d: %w", carID, err)
	}
	return &snap, nil
}

// Reset cancels the animation and resets the car without contacting the
// engine service. Returns false for unknown cars.
func (c *Controller) Reset(carID int) bool {
	e := c.entry(carID, false)
	if e == nil {
		return false
	}
	e.mu.Lock()
	d := e.reset(model.EngineIdle)
	snap := e.state
	e.mu.Unlock()
	if d != nil {
		d.anim.Cancel()
	}
	c.emit(c.event(model.EventReset, &snap))
	return true
}

// Remove drops the car. Pending service calls for it are discarded.
func (c *Controller) Remove(carID int) {
	c.mu.Lock()
	e, ok := c.cars[carID]
	delete(c.cars, carID)
	c.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	d := e.reset(model.EngineIdle)
	e.mu.Unlock()
	if d != nil {
		d.anim.Cancel()
	}
}

func (c *Controller) Snapshot(carID int) (model.CarState, bool) {
	e := c.entry(carID, false)
	if e == nil {
		return model.CarState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// Snapshots returns the state of all known cars ordered by car id.
func (c *Controller) Snapshots() []model.CarState {
	ret := lo.Map(c.entries(), func(e *entry, _ int) model.CarState {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.state
	})
	slices.SortFunc(ret, func(a, b model.CarState) int { return a.CarID - b.CarID })
	return ret
}

// Active returns the ids of cars that are starting, started or driving.
func (c *Controller) Active() []int {
	ret := lo.FilterMap(c.entries(), func(e *entry, _ int) (int, bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.state.CarID, e.starting || e.state.Racing()
	})
	slices.Sort(ret)
	return ret
}

// Animating reports whether any car is currently moving.
func (c *Controller) Animating() bool {
	return lo.SomeBy(c.entries(), func(e *entry) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.state.IsAnimating
	})
}

func (c *Controller) entry(carID int, create bool) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cars[carID]
	if !ok && create {
		e = &entry{state: model.CarState{CarID: carID, Status: model.EngineIdle}}
		c.cars[carID] = e
	}
	return e
}

func (c *Controller) entries() []*entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Values(c.cars)
}

func (c *Controller) onFrame(e *entry, d *drive, f animator.Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drive != d {
		return
	}
	e.state.Position = f.Position
	e.state.RaceTime = f.RaceTime
	switch f.State {
	case animator.Finished:
		e.state.Status = model.EngineFinished
		e.state.IsAnimating = false
		e.state.IsFinished = true
		d.committed = true
	case animator.BrokenDown:
		e.state.Status = model.EngineBrokenDown
		e.state.IsAnimating = false
		d.committed = true
	case animator.Running, animator.Cancelled:
	}
}

func (c *Controller) watch(e *entry, d *drive, carID int) {
	<-d.anim.Done()
	e.mu.Lock()
	committed := d.committed
	snap := e.state
	e.mu.Unlock()
	if !committed {
		return
	}
	f := d.anim.Outcome()
	res := Result{
		CarID:      carID,
		Position:   f.Position,
		RaceTime:   f.RaceTime,
		SessionID:  d.session.ID,
		Individual: d.session.Individual,
	}
	var ev model.Event
	if f.State == animator.Finished {
		res.Status = model.EngineFinished
		ev = c.event(model.EventFinished, &snap)
		ev.Time = f.RaceTime
		c.l.Info("car finished", log.Int("carId", carID), log.Float64("time", f.RaceTime))
	} else {
		res.Status = model.EngineBrokenDown
		ev = c.event(model.EventBrokenDown, &snap)
		c.l.Info("car broke down", log.Int("carId", carID),
			log.Float64("position", f.Position))
	}
	ev.Position = f.Position
	ev.RaceTime = f.RaceTime
	ev.SessionID = d.session.ID
	ev.Individual = d.session.Individual
	c.emit(ev)
	if c.observer != nil {
		c.observer(res)
	}
}

func (c *Controller) event(kind model.EventKind, s *model.CarState) model.Event {
	return model.Event{
		Kind:       kind,
		CarID:      s.CarID,
		SessionID:  s.SessionID,
		Individual: s.IsIndividualRace,
		Position:   s.Position,
		RaceTime:   s.RaceTime,
		Timestamp:  c.clock.Now(),
	}
}

// reset must be called with e.mu held. The returned drive has to be
// cancelled after the lock is released.
func (e *entry) reset(status model.EngineStatus) *drive {
	d := e.drive
	e.drive = nil
	e.gen++
	e.starting = false
	e.driving = false
	e.state.Status = status
	e.state.Position = 0
	e.state.RaceTime = 0
	e.state.IsAnimating = false
	e.state.IsFinished = false
	e.state.SessionID = ""
	e.state.IsIndividualRace = false
	return d
}
