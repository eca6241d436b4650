package model

import "time"

// SessionState is a snapshot of the group race session.
//
//nolint:tagliatelle // client compatibility
type SessionState struct {
	ID                 string     `json:"id,omitempty"`
	InProgress         bool       `json:"inProgress"`
	WinnerCarID        *int       `json:"winnerCarId,omitempty"`
	FirstFinisherCarID *int       `json:"firstFinisherCarId,omitempty"`
	WinnerTime         *float64   `json:"winnerTime,omitempty"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	Cars               []int      `json:"cars,omitempty"`
}

// SessionRecord is the persisted outcome of a group race.
type SessionRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	DecidedAt   time.Time `json:"decidedAt"`
	WinnerCarID int       `json:"winnerCarId"`
	WinnerTime  float64   `json:"winnerTime"`
	NumCars     int       `json:"numCars"`
}
