//nolint:whitespace // editor/linter issue
package car

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
)

type repo struct {
	conn repository.Querier
}

var _ api.CarRepository = (*repo)(nil)

func NewCarRepository(conn repository.Querier) api.CarRepository {
	return &repo{conn: conn}
}

func (r *repo) LoadAll(ctx context.Context) ([]*model.Car, error) {
	rows, err := r.conn.Query(ctx, `select id, name, color from car order by id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Car])
}

func (r *repo) LoadByID(ctx context.Context, id int) (*model.Car, error) {
	rows, err := r.conn.Query(ctx,
		`select id, name, color from car where id=$1`, id)
	if err != nil {
		return nil, err
	}
	ret, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Car])
	return ret, mapErr(err)
}

func (r *repo) Create(ctx context.Context, in *model.CarInput) (*model.Car, error) {
	row := r.conn.QueryRow(ctx, `
	insert into car (name, color) values ($1,$2)
	returning id
	`, in.Name, in.Color)
	ret := &model.Car{Name: in.Name, Color: in.Color}
	if err := row.Scan(&ret.ID); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *repo) Update(ctx context.Context, id int, in *model.CarInput) (
	*model.Car, error,
) {
	cmdTag, err := r.conn.Exec(ctx,
		`update car set name=$1, color=$2 where id=$3`, in.Name, in.Color, id)
	if err != nil {
		return nil, err
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, api.ErrNoRows
	}
	return &model.Car{ID: id, Name: in.Name, Color: in.Color}, nil
}

// deletes an entry from the database, returns number of rows deleted.
func (r *repo) DeleteByID(ctx context.Context, id int) (int, error) {
	cmdTag, err := r.conn.Exec(ctx, `delete from car where id=$1`, id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return api.ErrNoRows
	}
	return err
}
