// Package postgres provides the database backed repositories.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"

	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/pkg/repository/postgres/car"
	"github.com/mpapenbr/async-race-service/pkg/repository/postgres/session"
	"github.com/mpapenbr/async-race-service/pkg/repository/postgres/winner"
)

type repositories struct {
	carRepository     api.CarRepository
	winnerRepository  api.WinnerRepository
	sessionRepository api.SessionRepository
}

var _ api.Repositories = (*repositories)(nil)

func NewRepositoriesFromPool(pool *pgxpool.Pool) api.Repositories {
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	return &repositories{
		carRepository:     car.NewCarRepository(pool),
		winnerRepository:  winner.NewWinnerRepository(db),
		sessionRepository: session.NewSessionRepository(pool),
	}
}

func (r *repositories) Car() api.CarRepository {
	return r.carRepository
}

func (r *repositories) Winner() api.WinnerRepository {
	return r.winnerRepository
}

func (r *repositories) Session() api.SessionRepository {
	return r.sessionRepository
}
