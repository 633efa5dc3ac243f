package models

import "time"

type LeaderboardEntry struct {
	UserID    int       `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"-"`
	Country   *string   `json:"country,omitempty" db:"-"`
	Points    int       `json:"points" db:"points"`
	Wins      int       `json:"wins" db:"wins"`
	Losses    int       `json:"losses" db:"losses"`
	Rank      int       `json:"rank" db:"rank"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Производные поля, заполняются через FillDerived
	TotalMatches int `json:"total_matches" db:"-"`
	WinRate      int `json:"win_rate" db:"-"`
}

// FillDerived computes total_matches and win_rate (integer percent) from wins and losses.
func (e *LeaderboardEntry) FillDerived() {
	e.TotalMatches = e.Wins + e.Losses
	if e.TotalMatches == 0 {
		e.WinRate = 0
		return
	}
	e.WinRate = e.Wins * 100 / e.TotalMatches
}
