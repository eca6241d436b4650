package model

// Winner is the ledger record of a car. Time holds the best finish time.
type Winner struct {
	ID   int     `json:"id"`
	Wins int     `json:"wins"`
	Time float64 `json:"time"`
}

type WinnerUpdate struct {
	Wins int     `json:"wins"`
	Time float64 `json:"time"`
}

type SortField string

const (
	SortByID   SortField = "id"
	SortByWins SortField = "wins"
	SortByTime SortField = "time"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
