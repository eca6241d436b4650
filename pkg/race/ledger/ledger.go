// Package ledger merges race results into the per car winner records.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
)

var ErrLedgerWriteFailed = errors.New("ledger write failed")

type (
	Option  func(*Updater)
	Updater struct {
		repo api.WinnerRepository
		tx   api.TransactionManager
		l    *log.Logger
	}
)

// Merge computes the new winner record. existing may be nil.
func Merge(existing *model.Winner, carID int, raceTime float64) model.Winner {
	if existing == nil {
		return model.Winner{ID: carID, Wins: 1, Time: raceTime}
	}
	return model.Winner{
		ID:   existing.ID,
		Wins: existing.Wins + 1,
		Time: min(existing.Time, raceTime),
	}
}

// WithTransactionManager runs the read-modify-write in a single transaction.
func WithTransactionManager(tx api.TransactionManager) Option {
	return func(u *Updater) {
		u.tx = tx
	}
}

func WithLogger(l *log.Logger) Option {
	return func(u *Updater) {
		u.l = l
	}
}

func New(repo api.WinnerRepository, opts ...Option) *Updater {
	ret := &Updater{
		repo: repo,
		l:    log.Default().Named("race.ledger"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Record stores a finish of carID. Errors are wrapped in ErrLedgerWriteFailed.
func (u *Updater) Record(ctx context.Context, carID int, raceTime float64) (
	*model.Winner, error,
) {
	var ret *model.Winner
	fn := func(ctx context.Context) error {
		var err error
		ret, err = u.record(ctx, carID, raceTime)
		return err
	}
	var err error
	if u.tx != nil {
		err = u.tx.RunInTx(ctx, fn)
	} else {
		err = fn(ctx)
	}
	if err != nil {
		u.l.Error("could not record winner",
			log.Int("carId", carID), log.Float64("time", raceTime), log.ErrorField(err))
		return nil, fmt.Errorf("%w: car %d: %w", ErrLedgerWriteFailed, carID, err)
	}
	u.l.Debug("winner recorded",
		log.Int("carId", carID), log.Int("wins", ret.Wins), log.Float64("best", ret.Time))
	return ret, nil
}

func (u *Updater) record(ctx context.Context, carID int, raceTime float64) (
	*model.Winner, error,
) {
	existing, err := u.repo.LoadByID(ctx, carID)
	switch {
	case errors.Is(err, api.ErrNoRows):
		merged := Merge(nil, carID, raceTime)
		return u.repo.Create(ctx, &merged)
	case err != nil:
		return nil, err
	}
	merged := Merge(existing, carID, raceTime)
	return u.repo.Update(ctx, carID, &model.WinnerUpdate{Wins: merged.Wins, Time: merged.Time})
}
