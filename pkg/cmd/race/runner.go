package race

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/race"
)

var errRaceTimeout = errors.New("race did not complete in time")

// runner drives one race at a time through the manager.
type runner struct {
	m       *race.Manager
	out     io.Writer
	timeout time.Duration
}

// run starts a race and returns once every participant finished or broke
// down and the results reached the ledger.
//
//nolint:cyclop // by design
func (r *runner) run(ctx context.Context) error {
	ch := r.m.Subscribe()
	defer r.m.CancelSubscription(ch)

	before, err := r.wins(ctx)
	if err != nil {
		return err
	}
	sess, err := r.m.StartRace(ctx, nil)
	if err != nil {
		return err
	}
	defer r.m.ResetRace(ctx)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	pending := len(sess.Cars)
	expected := map[int]int{}
	for pending > 0 {
		select {
		case <-ctx.Done():
			return errRaceTimeout
		case ev, ok := <-ch:
			if !ok {
				return errRaceTimeout
			}
			if ev.SessionID != sess.ID {
				continue
			}
			r.print(&ev)
			switch ev.Kind {
			case model.EventFinished:
				expected[ev.CarID] = before[ev.CarID] + 1
				pending--
			case model.EventBrokenDown:
				pending--
			case model.EventLedgerFailed:
				delete(expected, ev.CarID)
			default:
			}
		}
	}
	if err := r.awaitLedger(ctx, expected); err != nil {
		return err
	}
	if s := r.m.Session(); s.WinnerCarID != nil {
		fmt.Fprintf(r.out, "winner: car %d in %.3fs\n", *s.WinnerCarID, *s.WinnerTime)
	} else {
		fmt.Fprintln(r.out, "no winner")
	}
	return nil
}

func (r *runner) print(ev *model.Event) {
	switch ev.Kind {
	case model.EventFinished:
		fmt.Fprintf(r.out, "%-15s car %d in %.3fs\n", ev.Kind, ev.CarID, ev.Time)
	case model.EventBrokenDown:
		fmt.Fprintf(r.out, "%-15s car %d at %.1f%%\n", ev.Kind, ev.CarID, ev.Position)
	case model.EventWinnerDeclared:
		fmt.Fprintf(r.out, "%-15s car %d (%s)\n", ev.Kind, ev.CarID, ev.CarName)
	case model.EventLedgerFailed:
		fmt.Fprintf(r.out, "%-15s car %d: %s\n", ev.Kind, ev.CarID, ev.Error)
	case model.EventDriving:
		if ev.DriveFault {
			fmt.Fprintf(r.out, "%-15s car %d (engine trouble)\n", ev.Kind, ev.CarID)
		}
	default:
	}
}

// awaitLedger waits until every finisher's win count reached the expected value.
func (r *runner) awaitLedger(ctx context.Context, expected map[int]int) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for {
		wins, err := r.wins(ctx)
		if err != nil {
			return err
		}
		done := true
		for id, n := range expected {
			if wins[id] < n {
				done = false
				break
			}
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return errRaceTimeout
		case <-t.C:
		}
	}
}

func (r *runner) wins(ctx context.Context) (map[int]int, error) {
	winners, err := r.m.Winners(ctx, model.SortByID, model.SortAsc)
	if err != nil {
		return nil, err
	}
	ret := make(map[int]int, len(winners))
	for _, w := range winners {
		ret[w.ID] = w.Wins
	}
	return ret, nil
}

func (r *runner) printStandings(ctx context.Context) error {
	winners, err := r.m.Winners(ctx, model.SortByWins, model.SortDesc)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "=== standings ===")
	fmt.Fprintf(r.out, "%-4s %-10s %5s %10s\n", "id", "name", "wins", "best")
	for _, w := range winners {
		name := ""
		if c, err := r.m.Car(ctx, w.ID); err == nil {
			name = c.Name
		}
		fmt.Fprintf(r.out, "%-4d %-10s %5d %10.3f\n", w.ID, name, w.Wins, w.Time)
	}
	return nil
}
