package model

import "time"

type EventKind string

const (
	EventStarted        EventKind = "started"
	EventDriving        EventKind = "driving"
	EventBrokenDown     EventKind = "brokenDown"
	EventFinished       EventKind = "finished"
	EventWinnerDeclared EventKind = "winnerDeclared"
	EventStopped        EventKind = "stopped"
	EventReset          EventKind = "reset"
	EventLedgerFailed   EventKind = "ledgerFailed"
	EventRaceStarted    EventKind = "raceStarted"
	EventRaceReset      EventKind = "raceReset"
)

// Event is emitted by the race engine for display and navigation decisions.
type Event struct {
	Kind       EventKind `json:"kind"`
	CarID      int       `json:"carId,omitempty"`
	CarName    string    `json:"carName,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
	Individual bool      `json:"individual"`
	Position   float64   `json:"position"`
	RaceTime   float64   `json:"raceTime"`
	Time       float64   `json:"time,omitempty"` // final time of a finish
	DriveFault bool      `json:"driveFault,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Terminal reports whether the event ends a drive.
func (e *Event) Terminal() bool {
	return e.Kind == EventFinished || e.Kind == EventBrokenDown
}
