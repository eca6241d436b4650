package memory

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
)

func TestCarRepository(t *testing.T) {
	ctx := context.Background()
	r := NewCarRepository(
		model.CarInput{Name: "Tesla", Color: "#e6e6fa"},
		model.CarInput{Name: "BMW", Color: "#fede00"},
	)
	all, err := r.LoadAll(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, []*model.Car{
		{ID: 1, Name: "Tesla", Color: "#e6e6fa"},
		{ID: 2, Name: "BMW", Color: "#fede00"},
	}, all)

	c, err := r.Create(ctx, &model.CarInput{Name: "Ford", Color: "#ef3c40"})
	assert.NilError(t, err)
	assert.Equal(t, 3, c.ID)

	c, err = r.Update(ctx, 3, &model.CarInput{Name: "Ford GT", Color: "#000000"})
	assert.NilError(t, err)
	assert.Equal(t, "Ford GT", c.Name)

	_, err = r.Update(ctx, 99, &model.CarInput{})
	assert.ErrorIs(t, err, api.ErrNoRows)

	n, err := r.DeleteByID(ctx, 3)
	assert.NilError(t, err)
	assert.Equal(t, 1, n)
	_, err = r.LoadByID(ctx, 3)
	assert.ErrorIs(t, err, api.ErrNoRows)

	n, err = r.DeleteByID(ctx, 3)
	assert.NilError(t, err)
	assert.Equal(t, 0, n)
}

func TestWinnerRepositorySort(t *testing.T) {
	ctx := context.Background()
	r := NewWinnerRepository()
	for _, w := range []model.Winner{
		{ID: 1, Wins: 2, Time: 5.5},
		{ID: 2, Wins: 5, Time: 7.1},
		{ID: 3, Wins: 2, Time: 3.2},
	} {
		_, err := r.Create(ctx, &w)
		assert.NilError(t, err)
	}
	ids := func(w []*model.Winner) []int {
		ret := make([]int, 0, len(w))
		for _, x := range w {
			ret = append(ret, x.ID)
		}
		return ret
	}
	tests := []struct {
		name  string
		sort  model.SortField
		order model.SortOrder
		want  []int
	}{
		{name: "id asc", sort: model.SortByID, order: model.SortAsc, want: []int{1, 2, 3}},
		{name: "wins desc", sort: model.SortByWins, order: model.SortDesc, want: []int{2, 1, 3}},
		{name: "time asc", sort: model.SortByTime, order: model.SortAsc, want: []int{3, 1, 2}},
		{name: "default", want: []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.LoadAll(ctx, tt.sort, tt.order)
			assert.NilError(t, err)
			assert.DeepEqual(t, tt.want, ids(got))
		})
	}
}

func TestWinnerRepositoryCrud(t *testing.T) {
	ctx := context.Background()
	r := NewWinnerRepository()
	_, err := r.LoadByID(ctx, 1)
	assert.ErrorIs(t, err, api.ErrNoRows)

	_, err = r.Create(ctx, &model.Winner{ID: 1, Wins: 1, Time: 7.3})
	assert.NilError(t, err)
	_, err = r.Create(ctx, &model.Winner{ID: 1, Wins: 1, Time: 7.3})
	assert.ErrorContains(t, err, "already exists")

	w, err := r.Update(ctx, 1, &model.WinnerUpdate{Wins: 2, Time: 6.1})
	assert.NilError(t, err)
	assert.DeepEqual(t, &model.Winner{ID: 1, Wins: 2, Time: 6.1}, w)

	_, err = r.Update(ctx, 2, &model.WinnerUpdate{Wins: 2, Time: 6.1})
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	r := NewSessionRepository()
	for _, id := range []string{"a", "b", "c"} {
		assert.NilError(t, r.Create(ctx, &model.SessionRecord{ID: id}))
	}
	got, err := r.LoadLatest(ctx, 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, []*model.SessionRecord{{ID: "c"}, {ID: "b"}}, got,
		cmp.Comparer(func(a, b model.SessionRecord) bool { return a.ID == b.ID }))
}
