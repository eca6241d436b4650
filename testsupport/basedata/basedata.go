// Package basedata seeds the test database.
package basedata

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleCars() []model.CarInput {
	return []model.CarInput{
		{Name: "Tesla", Color: "#e6e6fa"},
		{Name: "BMW", Color: "#fede00"},
		{Name: "Mersedes", Color: "#6c779f"},
	}
}

// CreateSampleCars inserts SampleCars and returns them with their ids.
func CreateSampleCars(pool *pgxpool.Pool) []model.Car {
	ret := make([]model.Car, 0, 3)
	err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		for _, c := range SampleCars() {
			car := model.Car{Name: c.Name, Color: c.Color}
			if err := tx.QueryRow(context.Background(),
				"insert into car (name, color) values ($1,$2) returning id",
				c.Name, c.Color).Scan(&car.ID); err != nil {
				return err
			}
			ret = append(ret, car)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("CreateSampleCars: %v\n", err)
	}
	return ret
}
