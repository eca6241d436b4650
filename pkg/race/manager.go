// Package race orchestrates engines, group race sessions and the winner ledger.
package race

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/engineservice"
	"github.com/mpapenbr/async-race-service/pkg/garage"
	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/race/animator"
	"github.com/mpapenbr/async-race-service/pkg/race/breakdown"
	"github.com/mpapenbr/async-race-service/pkg/race/coordinator"
	"github.com/mpapenbr/async-race-service/pkg/race/engine"
	"github.com/mpapenbr/async-race-service/pkg/race/ledger"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/pkg/utils/broadcast"
	"github.com/mpapenbr/async-race-service/pkg/utils/cache"
	"github.com/mpapenbr/async-race-service/pkg/utils/cache/loadercache"
)

var (
	ErrNoCars         = errors.New("no cars available")
	ErrNoCarsStarted  = errors.New("no car could be started")
	ErrRaceInProgress = coordinator.ErrRaceInProgress
)

type (
	Option  func(*Manager)
	Manager struct {
		service  engineservice.EngineService
		cars     api.CarRepository
		winners  api.WinnerRepository
		sessions api.SessionRepository
		tx       api.TransactionManager
		gen      *garage.Generator
		policy   *breakdown.Policy
		clock    animator.Clock
		interval time.Duration
		baseCtx  context.Context
		l        *log.Logger

		ctx      context.Context
		cancel   context.CancelFunc
		ctrl     *engine.Controller
		coord    *coordinator.Coordinator
		ledger   *ledger.Updater
		carCache cache.Cache[int, model.Car]
		events   chan model.Event
		bcst     broadcast.BroadcastServer[model.Event]
		tracer   trace.Tracer
		metrics  raceMetrics
		wg       sync.WaitGroup
	}

	raceMetrics struct {
		started      metric.Int64Counter
		finished     metric.Int64Counter
		brokenDown   metric.Int64Counter
		winner       metric.Int64Counter
		ledgerFailed metric.Int64Counter
	}
)

func WithCarRepository(r api.CarRepository) Option {
	return func(m *Manager) {
		m.cars = r
	}
}

// WithSessionRepository enables the session history.
func WithSessionRepository(r api.SessionRepository) Option {
	return func(m *Manager) {
		m.sessions = r
	}
}

func WithRepositories(r api.Repositories) Option {
	return func(m *Manager) {
		m.cars = r.Car()
		m.winners = r.Winner()
		m.sessions = r.Session()
	}
}

func WithTransactionManager(tx api.TransactionManager) Option {
	return func(m *Manager) {
		m.tx = tx
	}
}

func WithCarGenerator(g *garage.Generator) Option {
	return func(m *Manager) {
		m.gen = g
	}
}

func WithPolicy(p *breakdown.Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

func WithClock(c animator.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.interval = d
	}
}

// WithContext sets the parent of the context used for animations and
// background drives.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) {
		m.baseCtx = ctx
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		m.l = l
	}
}

//nolint:whitespace // editor/linter issue
func NewManager(
	service engineservice.EngineService,
	winners api.WinnerRepository,
	opts ...Option,
) *Manager {
	m := &Manager{
		service:  service,
		winners:  winners,
		gen:      garage.NewGenerator(),
		policy:   breakdown.New(),
		clock:    animator.RealClock,
		interval: animator.DefaultInterval,
		baseCtx:  context.Background(),
		l:        log.Default().Named("race"),
		events:   make(chan model.Event, 64),
		tracer:   otel.Tracer("ars.race"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(m.baseCtx)
	m.metrics = newRaceMetrics(m.l)
	m.coord = coordinator.New(
		coordinator.WithNow(m.clock.Now),
		coordinator.WithLogger(m.l.Named("coordinator")))
	ledgerOpts := []ledger.Option{ledger.WithLogger(m.l.Named("ledger"))}
	if m.tx != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithTransactionManager(m.tx))
	}
	m.ledger = ledger.New(m.winners, ledgerOpts...)
	m.ctrl = engine.NewController(service,
		engine.WithPolicy(m.policy),
		engine.WithClock(m.clock),
		engine.WithTickInterval(m.interval),
		engine.WithContext(m.ctx),
		engine.WithEmitter(m.emit),
		engine.WithObserver(m.onResult),
		engine.WithLogger(m.l.Named("engine")))
	m.carCache = loadercache.New(
		loadercache.WithLoader[int, model.Car](m.loadCar),
		loadercache.WithExpiration[int, model.Car](time.Minute),
		loadercache.WithLogger[int, model.Car](m.l.Named("cache")))
	m.bcst = broadcast.NewBroadcastServer("race", m.events,
		broadcast.WithTelemetry[model.Event]("race"),
		broadcast.WithBufferSize[model.Event](64),
		broadcast.WithLogger[model.Event](m.l.Named("broadcast")))
	return m
}

func newRaceMetrics(l *log.Logger) raceMetrics {
	meter := otel.GetMeterProvider().Meter("ars.race")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			l.Warn("failed to register metric", log.String("metric", name), log.ErrorField(err))
			return noop.Int64Counter{}
		}
		return c
	}
	return raceMetrics{
		started:      counter("ars.race.started", "Number of started engines"),
		finished:     counter("ars.race.finished", "Number of finished drives"),
		brokenDown:   counter("ars.race.breakdown", "Number of broken down drives"),
		winner:       counter("ars.race.winner", "Number of declared group race winners"),
		ledgerFailed: counter("ars.race.ledger.failed", "Number of failed ledger writes"),
	}
}

// Close stops all animations and closes the event stream.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
	m.bcst.Close()
}

func (m *Manager) Subscribe() <-chan model.Event {
	return m.bcst.Subscribe()
}

func (m *Manager) CancelSubscription(ch <-chan model.Event) {
	m.bcst.CancelSubscription(ch)
}

// StartEngine starts the engine of a single car. The car races individually
// unless it is a member of the running group race.
func (m *Manager) StartEngine(ctx context.Context, carID int) (*model.CarState, error) {
	ctx, span := m.tracer.Start(ctx, "race.StartEngine",
		trace.WithAttributes(attribute.Int("car.id", carID)))
	defer span.End()

	if err := m.ensureCar(ctx, carID); err != nil {
		return nil, traceError(span, err)
	}
	sessionID, group := m.coord.Classify(carID)
	s, err := m.ctrl.StartEngine(ctx, carID, engine.Session{ID: sessionID, Individual: !group})
	if err != nil {
		return nil, traceError(span, err)
	}
	m.metrics.started.Add(ctx, 1, metric.WithAttributes(attribute.Bool("group", group)))
	return s, nil
}

func (m *Manager) Drive(ctx context.Context, carID int) (*model.CarState, error) {
	ctx, span := m.tracer.Start(ctx, "race.Drive",
		trace.WithAttributes(attribute.Int("car.id", carID)))
	defer span.End()
	s, err := m.ctrl.RequestDrive(ctx, carID)
	if err != nil {
		return nil, traceError(span, err)
	}
	return s, nil
}

// Launch starts the engine and requests the drive in the background.
func (m *Manager) Launch(ctx context.Context, carID int) (*model.CarState, error) {
	s, err := m.StartEngine(ctx, carID)
	if err != nil {
		return nil, err
	}
	m.driveAsync(carID)
	return s, nil
}

func (m *Manager) StopEngine(ctx context.Context, carID int) (*model.CarState, error) {
	ctx, span := m.tracer.Start(ctx, "race.StopEngine",
		trace.WithAttributes(attribute.Int("car.id", carID)))
	defer span.End()
	s, err := m.ctrl.StopEngine(ctx, carID)
	if err != nil {
		return s, traceError(span, err)
	}
	return s, nil
}

// StartRace begins a group race. Without ids all cars of the car store take part.
//
//nolint:funlen // by design
func (m *Manager) StartRace(ctx context.Context, carIDs []int) (*model.SessionState, error) {
	ctx, span := m.tracer.Start(ctx, "race.StartRace")
	defer span.End()

	if len(carIDs) == 0 {
		ids, err := m.allCarIDs(ctx)
		if err != nil {
			return nil, traceError(span, err)
		}
		carIDs = ids
	}
	carIDs = lo.Uniq(carIDs)
	if len(carIDs) == 0 {
		return nil, traceError(span, ErrNoCars)
	}
	sess, err := m.coord.Begin(carIDs)
	if err != nil {
		return nil, traceError(span, err)
	}
	m.emit(model.Event{
		Kind:      model.EventRaceStarted,
		SessionID: sess.ID,
		Timestamp: m.clock.Now(),
	})

	type startResult struct {
		carID int
		err   error
	}
	results := make(chan startResult, len(carIDs))
	var wg sync.WaitGroup
	for _, id := range carIDs {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := m.StartEngine(ctx, id)
			results <- startResult{carID: id, err: err}
		}(id)
	}
	wg.Wait()
	close(results)

	started := make([]int, 0, len(carIDs))
	for r := range results {
		if r.err != nil {
			m.l.Warn("car not started for group race",
				log.Int("carId", r.carID), log.ErrorField(r.err))
			m.coord.Exclude(r.carID)
			continue
		}
		started = append(started, r.carID)
	}
	if len(started) == 0 {
		m.coord.Reset()
		return nil, traceError(span, ErrNoCarsStarted)
	}
	for _, id := range started {
		m.driveAsync(id)
	}
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Int("session.cars", len(started)))
	ret := m.coord.Snapshot()
	return &ret, nil
}

// ResetRace ends the group race. Cars of the session are reset, individual
// racers keep going.
func (m *Manager) ResetRace(ctx context.Context) []int {
	sessionID, members := m.coord.Reset()
	reset := make([]int, 0, len(members))
	for _, id := range members {
		s, ok := m.ctrl.Snapshot(id)
		if !ok || s.SessionID != sessionID {
			continue
		}
		m.ctrl.Reset(id)
		reset = append(reset, id)
	}
	m.emit(model.Event{
		Kind:      model.EventRaceReset,
		SessionID: sessionID,
		Timestamp: m.clock.Now(),
	})
	m.l.Info("race reset", log.String("session", sessionID), log.Int("cars", len(reset)))
	return reset
}

// DeleteCar removes a car and everything attached to it.
func (m *Manager) DeleteCar(ctx context.Context, carID int) error {
	if m.coord.IsMember(carID) {
		return fmt.Errorf("car %d: %w", carID, ErrRaceInProgress)
	}
	if m.cars != nil {
		n, err := m.cars.DeleteByID(ctx, carID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("car %d: %w", carID, api.ErrNoRows)
		}
	}
	m.ctrl.Remove(carID)
	m.coord.Exclude(carID)
	m.carCache.Invalidate(ctx, carID)
	if _, err := m.winners.DeleteByID(ctx, carID); err != nil {
		m.l.Warn("could not delete winner", log.Int("carId", carID), log.ErrorField(err))
	}
	return nil
}

func (m *Manager) CreateCar(ctx context.Context, in *model.CarInput) (*model.Car, error) {
	if m.cars == nil {
		return nil, ErrNoCars
	}
	return m.cars.Create(ctx, in)
}

// GenerateCars adds count random cars to the garage. Cars created before a
// failing insert are kept and returned together with the error.
func (m *Manager) GenerateCars(ctx context.Context, count int) ([]*model.Car, error) {
	if m.cars == nil {
		return nil, ErrNoCars
	}
	ret := make([]*model.Car, 0, count)
	for _, in := range m.gen.Cars(count) {
		car, err := m.cars.Create(ctx, &in)
		if err != nil {
			return ret, fmt.Errorf("generate car %d of %d: %w", len(ret)+1, count, err)
		}
		ret = append(ret, car)
	}
	m.l.Info("cars generated", log.Int("count", len(ret)))
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func (m *Manager) UpdateCar(ctx context.Context, carID int, in *model.CarInput) (
	*model.Car, error,
) {
	if m.cars == nil {
		return nil, ErrNoCars
	}
	defer m.carCache.Invalidate(ctx, carID)
	return m.cars.Update(ctx, carID, in)
}

func (m *Manager) Cars(ctx context.Context) ([]*model.Car, error) {
	if m.cars == nil {
		return []*model.Car{}, nil
	}
	return m.cars.LoadAll(ctx)
}

func (m *Manager) Car(ctx context.Context, carID int) (*model.Car, error) {
	return m.carCache.Get(ctx, carID)
}

//nolint:whitespace // editor/linter issue
func (m *Manager) Winners(ctx context.Context, sort model.SortField, order model.SortOrder) (
	[]*model.Winner, error,
) {
	return m.winners.LoadAll(ctx, sort, order)
}

func (m *Manager) Winner(ctx context.Context, carID int) (*model.Winner, error) {
	return m.winners.LoadByID(ctx, carID)
}

func (m *Manager) CarState(carID int) (model.CarState, bool) {
	return m.ctrl.Snapshot(carID)
}

func (m *Manager) CarStates() []model.CarState {
	return m.ctrl.Snapshots()
}

func (m *Manager) Session() model.SessionState {
	return m.coord.Snapshot()
}

// Sessions returns the latest group race outcomes.
func (m *Manager) Sessions(ctx context.Context, limit int) ([]*model.SessionRecord, error) {
	if m.sessions == nil {
		return []*model.SessionRecord{}, nil
	}
	return m.sessions.LoadLatest(ctx, limit)
}

// Active returns the ids of cars in the active race set.
func (m *Manager) Active() []int {
	return m.ctrl.Active()
}

// Animating reports whether any car is moving. Consumers use it to block
// navigation.
func (m *Manager) Animating() bool {
	return m.ctrl.Animating()
}

func (m *Manager) driveAsync(carID int) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := m.Drive(m.ctx, carID); err != nil {
			m.l.Debug("drive not started", log.Int("carId", carID), log.ErrorField(err))
		}
	}()
}

// onResult is called once per terminal drive outcome.
func (m *Manager) onResult(res engine.Result) {
	ctx := m.ctx
	attrs := metric.WithAttributes(attribute.Bool("group", !res.Individual))
	if res.Status == model.EngineBrokenDown {
		m.metrics.brokenDown.Add(ctx, 1, attrs)
		return
	}
	m.metrics.finished.Add(ctx, 1, attrs)

	if !res.Individual && m.coord.Finish(res.SessionID, res.CarID, res.RaceTime) {
		m.metrics.winner.Add(ctx, 1)
		ev := model.Event{
			Kind:      model.EventWinnerDeclared,
			CarID:     res.CarID,
			SessionID: res.SessionID,
			Position:  res.Position,
			RaceTime:  res.RaceTime,
			Time:      res.RaceTime,
			Timestamp: m.clock.Now(),
		}
		if car, err := m.carCache.Get(ctx, res.CarID); err == nil {
			ev.CarName = car.Name
		}
		m.emit(ev)
		m.storeSession(ctx, res.SessionID)
	}

	ctx, span := m.tracer.Start(ctx, "race.RecordWinner",
		trace.WithAttributes(
			attribute.Int("car.id", res.CarID),
			attribute.Float64("race.time", res.RaceTime)))
	defer span.End()
	if _, err := m.ledger.Record(ctx, res.CarID, res.RaceTime); err != nil {
		m.metrics.ledgerFailed.Add(ctx, 1)
		_ = traceError(span, err)
		m.emit(model.Event{
			Kind:       model.EventLedgerFailed,
			CarID:      res.CarID,
			SessionID:  res.SessionID,
			Individual: res.Individual,
			Time:       res.RaceTime,
			Error:      err.Error(),
			Timestamp:  m.clock.Now(),
		})
	}
}

func (m *Manager) storeSession(ctx context.Context, sessionID string) {
	if m.sessions == nil {
		return
	}
	rec, ok := m.coord.Record(sessionID)
	if !ok {
		return
	}
	if err := m.sessions.Create(ctx, &rec); err != nil {
		m.l.Error("could not store session", log.String("session", sessionID),
			log.ErrorField(err))
	}
}

func (m *Manager) emit(ev model.Event) {
	select {
	case m.events <- ev:
	case <-m.ctx.Done():
	}
}

func (m *Manager) ensureCar(ctx context.Context, carID int) error {
	if m.cars == nil {
		return nil
	}
	_, err := m.carCache.Get(ctx, carID)
	if err != nil {
		return fmt.Errorf("car %d: %w", carID, err)
	}
	return nil
}

func (m *Manager) loadCar(ctx context.Context, carID int) (*model.Car, error) {
	if m.cars == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cars.LoadByID(ctx, carID)
}

func (m *Manager) allCarIDs(ctx context.Context) ([]int, error) {
	if m.cars == nil {
		return nil, ErrNoCars
	}
	cars, err := m.cars.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(cars, func(c *model.Car, _ int) int { return c.ID }), nil
}

func traceError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
