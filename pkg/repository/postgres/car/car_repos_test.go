//nolint:funlen // ok for this test code
package car

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/mpapenbr/async-race-service/pkg/model"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/testsupport/basedata"
	"github.com/mpapenbr/async-race-service/testsupport/testdb"
)

func TestCreateAndLoad(t *testing.T) {
	pool := testdb.InitTestDB()
	r := NewCarRepository(pool)
	ctx := context.Background()

	created, err := r.Create(ctx, &model.CarInput{Name: "Ford", Color: "#000000"})
	assert.NilError(t, err)
	assert.Assert(t, created.ID > 0)

	loaded, err := r.LoadByID(ctx, created.ID)
	assert.NilError(t, err)
	assert.DeepEqual(t, created, loaded)

	_, err = r.LoadByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, api.ErrNoRows)
}

func TestLoadAll(t *testing.T) {
	pool := testdb.InitTestDB()
	cars := basedata.CreateSampleCars(pool)
	r := NewCarRepository(pool)

	all, err := r.LoadAll(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(all), len(cars))
	for i := range cars {
		assert.DeepEqual(t, *all[i], cars[i])
	}
}

func TestUpdate(t *testing.T) {
	pool := testdb.InitTestDB()
	cars := basedata.CreateSampleCars(pool)
	r := NewCarRepository(pool)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      int
		wantErr error
	}{
		{name: "existing", id: cars[0].ID},
		{name: "unknown", id: cars[2].ID + 1000, wantErr: api.ErrNoRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &model.CarInput{Name: "renamed", Color: "#ffffff"}
			got, err := r.Update(ctx, tt.id, in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NilError(t, err)
			assert.DeepEqual(t, got, &model.Car{ID: tt.id, Name: in.Name, Color: in.Color})
		})
	}
}

func TestDeleteByID(t *testing.T) {
	pool := testdb.InitTestDB()
	cars := basedata.CreateSampleCars(pool)
	r := NewCarRepository(pool)
	ctx := context.Background()

	n, err := r.DeleteByID(ctx, cars[1].ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	n, err = r.DeleteByID(ctx, cars[1].ID)
	assert.NilError(t, err)
	assert.Equal(t, n, 0)
}
