package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/pkg/repository/memory"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing *model.Winner
		time     float64
		want     model.Winner
	}{
		{
			name:     "better time",
			existing: &model.Winner{ID: 1, Wins: 3, Time: 5.0},
			time:     4.2,
			want:     model.Winner{ID: 1, Wins: 4, Time: 4.2},
		},
		{
			name:     "worse time",
			existing: &model.Winner{ID: 1, Wins: 3, Time: 5.0},
			time:     6.0,
			want:     model.Winner{ID: 1, Wins: 4, Time: 5.0},
		},
		{
			name: "first win",
			time: 7.3,
			want: model.Winner{ID: 1, Wins: 1, Time: 7.3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.existing, 1, tt.time)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewWinnerRepository()
	u := New(repo)

	w, err := u.Record(ctx, 5, 7.3)
	require.NoError(t, err)
	assert.Equal(t, &model.Winner{ID: 5, Wins: 1, Time: 7.3}, w)

	w, err = u.Record(ctx, 5, 8.0)
	require.NoError(t, err)
	assert.Equal(t, &model.Winner{ID: 5, Wins: 2, Time: 7.3}, w)

	w, err = u.Record(ctx, 5, 6.5)
	require.NoError(t, err)
	assert.Equal(t, &model.Winner{ID: 5, Wins: 3, Time: 6.5}, w)

	stored, err := repo.LoadByID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, w, stored)
}

type failingRepo struct {
	api.WinnerRepository
	loadErr   error
	updateErr error
}

func (f *failingRepo) LoadByID(ctx context.Context, id int) (*model.Winner, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.WinnerRepository.LoadByID(ctx, id)
}

//nolint:whitespace // editor/linter issue
func (f *failingRepo) Update(ctx context.Context, id int, upd *model.WinnerUpdate) (
	*model.Winner, error,
) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.WinnerRepository.Update(ctx, id, upd)
}

func TestRecordFailures(t *testing.T) {
	ctx := context.Background()
	base := memory.NewWinnerRepository()
	_, err := base.Create(ctx, &model.Winner{ID: 1, Wins: 1, Time: 4.0})
	require.NoError(t, err)

	tests := []struct {
		name string
		repo *failingRepo
	}{
		{name: "load", repo: &failingRepo{WinnerRepository: base, loadErr: errors.New("down")}},
		{
			name: "update",
			repo: &failingRepo{WinnerRepository: base, updateErr: errors.New("down")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.repo).Record(ctx, 1, 3.0)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLedgerWriteFailed)
			assert.Contains(t, err.Error(), "down")
		})
	}
	stored, err := base.LoadByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Wins)
}

type recordingTx struct{ calls int }

func (r *recordingTx) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func TestRecordWithTransaction(t *testing.T) {
	tx := &recordingTx{}
	u := New(memory.NewWinnerRepository(), WithTransactionManager(tx))
	_, err := u.Record(context.Background(), 1, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)
}
