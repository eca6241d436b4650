//nolint:funlen // ok for this test code
package winner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/pkg/repository/postgres"
	"github.com/mpapenbr/async-race-service/pkg/repository/postgres/winner"
	"github.com/mpapenbr/async-race-service/testsupport/basedata"
	"github.com/mpapenbr/async-race-service/testsupport/testdb"
)

func setup(t *testing.T) (api.WinnerRepository, []model.Car, api.TransactionManager) {
	t.Helper()
	pool := testdb.InitTestDB()
	cars := basedata.CreateSampleCars(pool)
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	return winner.NewWinnerRepository(db), cars, postgres.NewTransactionManager(db)
}

func TestCreateAndLoad(t *testing.T) {
	r, cars, _ := setup(t)
	ctx := context.Background()

	w, err := r.Create(ctx, &model.Winner{ID: cars[0].ID, Wins: 1, Time: 4.25})
	assert.NilError(t, err)
	assert.DeepEqual(t, w, &model.Winner{ID: cars[0].ID, Wins: 1, Time: 4.25})

	loaded, err := r.LoadByID(ctx, cars[0].ID)
	assert.NilError(t, err)
	assert.DeepEqual(t, loaded, w)

	_, err = r.Create(ctx, &model.Winner{ID: cars[0].ID, Wins: 1, Time: 3})
	assert.Assert(t, err != nil, "duplicate")

	_, err = r.LoadByID(ctx, cars[1].ID)
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestBestTimeKeepsPrecision(t *testing.T) {
	r, cars, _ := setup(t)
	ctx := context.Background()

	for i, tm := range []float64{0.0004, 5.123456789} {
		w := &model.Winner{ID: cars[i].ID, Wins: 1, Time: tm}
		_, err := r.Create(ctx, w)
		assert.NilError(t, err)
		loaded, err := r.LoadByID(ctx, cars[i].ID)
		assert.NilError(t, err)
		assert.Equal(t, loaded.Time, tm)
	}

	_, err := r.Create(ctx, &model.Winner{ID: cars[2].ID, Wins: 1, Time: 0})
	assert.Assert(t, err != nil, "non-positive best time")
}

func TestUpdate(t *testing.T) {
	r, cars, _ := setup(t)
	ctx := context.Background()
	_, err := r.Create(ctx, &model.Winner{ID: cars[0].ID, Wins: 3, Time: 5.0})
	assert.NilError(t, err)

	w, err := r.Update(ctx, cars[0].ID, &model.WinnerUpdate{Wins: 4, Time: 4.2})
	assert.NilError(t, err)
	assert.DeepEqual(t, w, &model.Winner{ID: cars[0].ID, Wins: 4, Time: 4.2})

	_, err = r.Update(ctx, cars[1].ID, &model.WinnerUpdate{Wins: 1, Time: 1})
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestLoadAllSorted(t *testing.T) {
	r, cars, _ := setup(t)
	ctx := context.Background()
	for i, w := range []model.Winner{
		{ID: cars[0].ID, Wins: 2, Time: 7.5},
		{ID: cars[1].ID, Wins: 5, Time: 9.1},
		{ID: cars[2].ID, Wins: 2, Time: 3.3},
	} {
		_, err := r.Create(ctx, &w)
		assert.NilError(t, err, "entry %d", i)
	}
	ids := func(w []*model.Winner) []int {
		ret := make([]int, len(w))
		for i := range w {
			ret[i] = w[i].ID
		}
		return ret
	}

	tests := []struct {
		name  string
		sort  model.SortField
		order model.SortOrder
		want  []int
	}{
		{"default", "", "", []int{cars[0].ID, cars[1].ID, cars[2].ID}},
		{"wins desc", model.SortByWins, model.SortDesc, []int{cars[1].ID, cars[0].ID, cars[2].ID}},
		{"time asc", model.SortByTime, model.SortAsc, []int{cars[2].ID, cars[0].ID, cars[1].ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.LoadAll(ctx, tt.sort, tt.order)
			assert.NilError(t, err)
			assert.DeepEqual(t, ids(got), tt.want)
		})
	}
}

func TestTransactionRollback(t *testing.T) {
	r, cars, tx := setup(t)
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := r.Create(ctx, &model.Winner{ID: cars[0].ID, Wins: 1, Time: 2}); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = r.LoadByID(ctx, cars[0].ID)
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestDeleteByID(t *testing.T) {
	r, cars, _ := setup(t)
	ctx := context.Background()
	_, err := r.Create(ctx, &model.Winner{ID: cars[0].ID, Wins: 1, Time: 2})
	assert.NilError(t, err)

	n, err := r.DeleteByID(ctx, cars[0].ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)
	n, err = r.DeleteByID(ctx, cars[0].ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
}
