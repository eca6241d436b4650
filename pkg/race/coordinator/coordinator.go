// Package coordinator tracks the group race session and arbitrates its winner.
package coordinator

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/model"
)

var ErrRaceInProgress = errors.New("race in progress")

type (
	Option      func(*Coordinator)
	Coordinator struct {
		mu      sync.Mutex // serializes Begin, Reset and membership changes
		current atomic.Pointer[session]
		now     func() time.Time
		l       *log.Logger
	}

	session struct {
		id        string
		startedAt time.Time
		members   map[int]struct{} // guarded by Coordinator.mu
		winner    atomic.Pointer[winner]
	}

	winner struct {
		carID     int
		time      float64
		decidedAt time.Time
	}
)

func WithNow(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		c.l = l
	}
}

func New(opts ...Option) *Coordinator {
	ret := &Coordinator{
		now: time.Now,
		l:   log.Default().Named("race.coordinator"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Begin starts a new group race session with a fixed set of members.
func (c *Coordinator) Begin(carIDs []int) (model.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.current.Load(); cur != nil {
		return model.SessionState{}, fmt.Errorf("session %s: %w", cur.id, ErrRaceInProgress)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.SessionState{}, fmt.Errorf("create session id: %w", err)
	}
	s := &session{
		id:        id.String(),
		startedAt: c.now(),
		members:   lo.SliceToMap(carIDs, func(id int) (int, struct{}) { return id, struct{}{} }),
	}
	c.current.Store(s)
	c.l.Info("group race started",
		log.String("session", s.id), log.Int("cars", len(s.members)))
	return c.snapshot(s), nil
}

// Classify returns the session id if carID is a member of the running group
// race. Everything else is an individual race.
func (c *Coordinator) Classify(carID int) (sessionID string, group bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current.Load()
	if s == nil {
		return "", false
	}
	if _, ok := s.members[carID]; !ok {
		return "", false
	}
	return s.id, true
}

// Finish reports a finished group racer. It returns true for exactly one car
// per session. Finishes for other sessions are ignored.
func (c *Coordinator) Finish(sessionID string, carID int, raceTime float64) bool {
	s := c.current.Load()
	if s == nil || s.id != sessionID {
		c.l.Debug("ignoring finish of stale session",
			log.String("session", sessionID), log.Int("carId", carID))
		return false
	}
	w := &winner{carID: carID, time: raceTime, decidedAt: c.now()}
	if !s.winner.CompareAndSwap(nil, w) {
		return false
	}
	c.l.Info("winner declared",
		log.String("session", s.id), log.Int("carId", carID), log.Float64("time", raceTime))
	return true
}

// Exclude removes a car from the membership of the running session.
func (c *Coordinator) Exclude(carID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.current.Load(); s != nil {
		delete(s.members, carID)
	}
}

// IsMember reports whether carID takes part in the running group race.
func (c *Coordinator) IsMember(carID int) bool {
	_, ok := c.Classify(carID)
	return ok
}

// Reset ends the session and returns its id and members in one step.
func (c *Coordinator) Reset() (sessionID string, members []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current.Swap(nil)
	if s == nil {
		return "", nil
	}
	c.l.Info("group race reset", log.String("session", s.id))
	return s.id, sortedMembers(s)
}

func (c *Coordinator) Snapshot() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current.Load()
	if s == nil {
		return model.SessionState{}
	}
	return c.snapshot(s)
}

// Record returns the outcome of the session if a winner was declared.
func (c *Coordinator) Record(sessionID string) (model.SessionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current.Load()
	if s == nil || s.id != sessionID {
		return model.SessionRecord{}, false
	}
	w := s.winner.Load()
	if w == nil {
		return model.SessionRecord{}, false
	}
	return model.SessionRecord{
		ID:          s.id,
		StartedAt:   s.startedAt,
		DecidedAt:   w.decidedAt,
		WinnerCarID: w.carID,
		WinnerTime:  w.time,
		NumCars:     len(s.members),
	}, true
}

// snapshot must be called with c.mu held.
func (c *Coordinator) snapshot(s *session) model.SessionState {
	ret := model.SessionState{
		ID:         s.id,
		InProgress: true,
		StartedAt:  lo.ToPtr(s.startedAt),
		Cars:       sortedMembers(s),
	}
	if w := s.winner.Load(); w != nil {
		ret.WinnerCarID = lo.ToPtr(w.carID)
		ret.FirstFinisherCarID = lo.ToPtr(w.carID)
		ret.WinnerTime = lo.ToPtr(w.time)
	}
	return ret
}

func sortedMembers(s *session) []int {
	ret := lo.Keys(s.members)
	slices.Sort(ret)
	return ret
}
