package model

import (
	"math"
	"time"
)

type EngineStatus string

const (
	EngineIdle       EngineStatus = "idle"
	EngineStarted    EngineStatus = "started"
	EngineDriving    EngineStatus = "driving"
	EngineFinished   EngineStatus = "finished"
	EngineBrokenDown EngineStatus = "brokenDown"
	EngineStopped    EngineStatus = "stopped"
)

// EngineParams are the values reported by the engine service on start.
type EngineParams struct {
	Velocity float64 `json:"velocity"`
	Distance float64 `json:"distance"`
}

// Valid reports whether velocity and distance are finite and positive.
func (p EngineParams) Valid() bool {
	return p.Velocity > 0 && p.Distance > 0 &&
		!math.IsInf(p.Velocity, 1) && !math.IsInf(p.Distance, 1)
}

// NominalTime returns distance/velocity in seconds.
func (p EngineParams) NominalTime() float64 {
	if p.Velocity <= 0 {
		return 0
	}
	return p.Distance / p.Velocity
}

// CarState is the engine state of a single car.
// IsAnimating and IsFinished are never both true.
type CarState struct {
	CarID            int          `json:"carId"`
	Status           EngineStatus `json:"status"`
	Velocity         float64      `json:"velocity"`
	Distance         float64      `json:"distance"`
	Position         float64      `json:"position"` // 0..100
	RaceTime         float64      `json:"raceTime"`
	IsAnimating      bool         `json:"isAnimating"`
	IsFinished       bool         `json:"isFinished"`
	IsIndividualRace bool         `json:"isIndividualRace"`
	StartedAt        time.Time    `json:"startedAt"`
	SessionID        string       `json:"sessionId,omitempty"`
}

// Idle reports whether the engine can be started. Stopped counts as idle.
func (s *CarState) Idle() bool {
	return s.Status == "" || s.Status == EngineIdle || s.Status == EngineStopped
}

// Racing reports whether the car belongs to the active race set.
func (s *CarState) Racing() bool {
	return s.Status == EngineStarted || s.Status == EngineDriving
}
