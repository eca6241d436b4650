package api

import (
	"context"
	"errors"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

var ErrNoRows = errors.New("no rows in result set")

type Repositories interface {
	Car() CarRepository
	Winner() WinnerRepository
	Session() SessionRepository
}

type CarRepository interface {
	LoadAll(ctx context.Context) ([]*model.Car, error)
	LoadByID(ctx context.Context, id int) (*model.Car, error)
	Create(ctx context.Context, in *model.CarInput) (*model.Car, error)
	Update(ctx context.Context, id int, in *model.CarInput) (*model.Car, error)
	// DeleteByID returns the number of deleted rows
	DeleteByID(ctx context.Context, id int) (int, error)
}

type WinnerRepository interface {
	LoadAll(ctx context.Context, sort model.SortField, order model.SortOrder) (
		[]*model.Winner, error,
	)
	LoadByID(ctx context.Context, id int) (*model.Winner, error)
	Create(ctx context.Context, w *model.Winner) (*model.Winner, error)
	Update(ctx context.Context, id int, upd *model.WinnerUpdate) (*model.Winner, error)
	DeleteByID(ctx context.Context, id int) (int, error)
}

// SessionRepository stores the outcome of group races.
type SessionRepository interface {
	Create(ctx context.Context, rec *model.SessionRecord) error
	// LoadLatest returns up to limit records, newest first
	LoadLatest(ctx context.Context, limit int) ([]*model.SessionRecord, error)
}

type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
