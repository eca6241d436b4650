package session

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
)

type repo struct {
	conn repository.Querier
}

var _ api.SessionRepository = (*repo)(nil)

func NewSessionRepository(conn repository.Querier) api.SessionRepository {
	return &repo{conn: conn}
}

func (r *repo) Create(ctx context.Context, rec *model.SessionRecord) error {
	id, err := uuid.FromString(rec.ID)
	if err != nil {
		return err
	}
	_, err = r.conn.Exec(ctx, `
	insert into race_session (
		id, started_at, decided_at, winner_car_id, winner_time, num_cars
	) values ($1,$2,$3,$4,$5,$6)
	`, id, rec.StartedAt, rec.DecidedAt, rec.WinnerCarID, rec.WinnerTime, rec.NumCars)
	return err
}

//nolint:whitespace // editor/linter issue
func (r *repo) LoadLatest(ctx context.Context, limit int) (
	[]*model.SessionRecord, error,
) {
	rows, err := r.conn.Query(ctx, `
	select id, started_at, decided_at, winner_car_id, winner_time::float8, num_cars
	from race_session
	order by decided_at desc
	limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.SessionRecord, error) {
		var id uuid.UUID
		ret := &model.SessionRecord{}
		var winnerCarID, numCars int32
		if err := row.Scan(&id, &ret.StartedAt, &ret.DecidedAt,
			&winnerCarID, &ret.WinnerTime, &numCars); err != nil {
			return nil, err
		}
		ret.ID = id.String()
		ret.WinnerCarID = int(winnerCarID)
		ret.NumCars = int(numCars)
		return ret, nil
	})
}
