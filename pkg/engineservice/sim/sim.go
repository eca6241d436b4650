// Package sim provides an in-process engine service.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/engineservice"
	"github.com/mpapenbr/async-race-service/pkg/model"
)

const (
	MinVelocity     = 50.0
	MaxVelocity     = 200.0
	DefaultDistance = 5000.0
	DefaultFailure  = 0.3
)

type (
	Option  func(*Service)
	Service struct {
		mu          sync.Mutex
		engines     map[int]*engine
		distance    float64
		failureRate float64
		latency     time.Duration
		random      func() float64
		l           *log.Logger
	}
	engine struct {
		params  model.EngineParams
		driving bool
	}
)

var _ engineservice.EngineService = (*Service)(nil)

func WithDistance(d float64) Option {
	return func(s *Service) {
		s.distance = d
	}
}

// WithFailureRate sets the probability of a denied drive.
func WithFailureRate(rate float64) Option {
	return func(s *Service) {
		s.failureRate = rate
	}
}

// WithLatency delays every call by d.
func WithLatency(d time.Duration) Option {
	return func(s *Service) {
		s.latency = d
	}
}

// WithRandom replaces the random source. f must return values in [0,1).
func WithRandom(f func() float64) Option {
	return func(s *Service) {
		s.random = f
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.l = l
	}
}

func New(opts ...Option) *Service {
	ret := &Service{
		engines:     make(map[int]*engine),
		distance:    DefaultDistance,
		failureRate: DefaultFailure,
		random:      rand.Float64,
		l:           log.Default().Named("sim"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Service) Start(ctx context.Context, carID int) (*model.EngineParams, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	params := model.EngineParams{
		Velocity: MinVelocity + s.random()*(MaxVelocity-MinVelocity),
		Distance: s.distance,
	}
	s.engines[carID] = &engine{params: params}
	s.l.Debug("engine started", log.Int("carId", carID),
		log.Float64("velocity", params.Velocity))
	return &params, nil
}

func (s *Service) Stop(ctx context.Context, carID int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, carID)
	return nil
}

func (s *Service) Drive(ctx context.Context, carID int) (bool, error) {
	s.mu.Lock()
	e, ok := s.engines[carID]
	switch {
	case !ok:
		s.mu.Unlock()
		return false, fmt.Errorf("car %d: %w", carID, engineservice.ErrEngineNotStarted)
	case e.driving:
		s.mu.Unlock()
		return false, fmt.Errorf("car %d: %w", carID, engineservice.ErrTooManyRequests)
	}
	e.driving = true
	fail := s.random() < s.failureRate
	s.mu.Unlock()

	if err := s.wait(ctx); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.engines[carID]; ok && cur == e {
		e.driving = false
	}
	if fail {
		s.l.Debug("engine broke down", log.Int("carId", carID))
		return false, nil
	}
	return true, nil
}

// Engines returns the number of started engines.
func (s *Service) Engines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.engines)
}

func (s *Service) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
