// Package clock provides a manually advanced clock for animation tests.
package clock

import (
	"sync"
	"time"

	"github.com/mpapenbr/async-race-service/pkg/race/animator"
)

type (
	Manual struct {
		mu      sync.Mutex
		now     time.Time
		tickers []*ticker
	}
	ticker struct {
		c    chan time.Time
		done chan struct{}
		once sync.Once
	}
)

var _ animator.Clock = (*Manual)(nil)

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTicker ignores d. Every call to Advance delivers one tick.
func (m *Manual) NewTicker(d time.Duration) animator.Ticker {
	t := &ticker{c: make(chan time.Time), done: make(chan struct{})}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

// Advance moves the clock forward and blocks until every active ticker
// received the new time or was stopped.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	active := make([]*ticker, 0, len(m.tickers))
	for _, t := range m.tickers {
		select {
		case <-t.done:
		default:
			active = append(active, t)
		}
	}
	m.tickers = active
	m.mu.Unlock()

	for _, t := range active {
		select {
		case t.c <- now:
		case <-t.done:
		}
	}
}

// Tickers returns the number of tickers not yet stopped.
func (m *Manual) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		select {
		case <-t.done:
		default:
			n++
		}
	}
	return n
}

func (t *ticker) C() <-chan time.Time { return t.c }

func (t *ticker) Stop() {
	t.once.Do(func() { close(t.done) })
}
