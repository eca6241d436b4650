package engineservice

import (
	"context"
	"errors"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

var (
	ErrEngineNotStarted = errors.New("engine not started")
	ErrTooManyRequests  = errors.New("drive already in progress")
)

// EngineService simulates the engines of the cars.
// Drive reports success=false for a structured denial (engine broke down).
// A returned error is a transport failure; callers treat both the same way.
type EngineService interface {
	Start(ctx context.Context, carID int) (*model.EngineParams, error)
	Stop(ctx context.Context, carID int) error
	Drive(ctx context.Context, carID int) (success bool, err error)
}
