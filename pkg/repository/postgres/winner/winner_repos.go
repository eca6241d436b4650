//nolint:whitespace // can't make both editor and linter happy
package winner

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	bobCtx "github.com/mpapenbr/async-race-service/pkg/repository/postgres/context"
)

const tableName = "winner"

type (
	repo struct {
		conn bob.Executor
	}
	winnerRow struct {
		ID       int32
		Wins     int32
		BestTime decimal.Decimal
	}
)

var (
	_       api.WinnerRepository = (*repo)(nil)
	columns                      = []any{"id", "wins", "best_time"}
	sortColumns                  = map[model.SortField]string{
		model.SortByID:   "id",
		model.SortByWins: "wins",
		model.SortByTime: "best_time",
	}
)

func NewWinnerRepository(conn bob.Executor) api.WinnerRepository {
	return &repo{conn: conn}
}

func (r *repo) LoadAll(ctx context.Context, sort model.SortField, order model.SortOrder) (
	[]*model.Winner, error,
) {
	col, ok := sortColumns[sort]
	if !ok {
		col = "id"
	}
	orderBy := sm.OrderBy(psql.Quote(col)).Asc()
	if order == model.SortDesc {
		orderBy = sm.OrderBy(psql.Quote(col)).Desc()
	}
	q := psql.Select(
		sm.Columns(columns...),
		sm.From(tableName),
		orderBy,
		sm.OrderBy(psql.Quote("id")).Asc(),
	)
	res, err := bob.All(ctx, r.getExecutor(ctx), q, scan.StructMapper[winnerRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Winner, len(res))
	for i := range res {
		ret[i] = res[i].toModel()
	}
	return ret, nil
}

func (r *repo) LoadByID(ctx context.Context, id int) (*model.Winner, error) {
	q := psql.Select(
		sm.Columns(columns...),
		sm.From(tableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	res, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[winnerRow]())
	if err != nil {
		return nil, mapErr(err)
	}
	return res.toModel(), nil
}

func (r *repo) Create(ctx context.Context, w *model.Winner) (*model.Winner, error) {
	q := psql.Insert(
		im.Into(tableName, "id", "wins", "best_time"),
		im.Values(
			psql.Arg(w.ID),
			psql.Arg(w.Wins),
			psql.Arg(decimal.NewFromFloat(w.Time))),
		im.Returning(columns...),
	)
	res, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[winnerRow]())
	if err != nil {
		return nil, err
	}
	return res.toModel(), nil
}

func (r *repo) Update(ctx context.Context, id int, upd *model.WinnerUpdate) (
	*model.Winner, error,
) {
	q := psql.Update(
		um.Table(tableName),
		um.SetCol("wins").To(psql.Arg(upd.Wins)),
		um.SetCol("best_time").To(psql.Arg(decimal.NewFromFloat(upd.Time))),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
		um.Returning(columns...),
	)
	res, err := bob.One(ctx, r.getExecutor(ctx), q, scan.StructMapper[winnerRow]())
	if err != nil {
		return nil, mapErr(err)
	}
	return res.toModel(), nil
}

// deletes an entry from the database, returns number of rows deleted.
func (r *repo) DeleteByID(ctx context.Context, id int) (int, error) {
	q := psql.Delete(
		dm.From(tableName),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	res, err := bob.Exec(ctx, r.getExecutor(ctx), q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *repo) getExecutor(ctx context.Context) bob.Executor {
	if executor := bobCtx.FromContext(ctx); executor != nil {
		return executor
	}
	return r.conn
}

func (w *winnerRow) toModel() *model.Winner {
	return &model.Winner{
		ID:   int(w.ID),
		Wins: int(w.Wins),
		Time: w.BestTime.InexactFloat64(),
	}
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return api.ErrNoRows
	}
	return err
}
