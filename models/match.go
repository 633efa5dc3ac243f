package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
)

// Очки, начисляемые победителю матча.
const WinPoints = 100

type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Round        int         `json:"round" db:"round"`
	MatchNumber  int         `json:"match_number" db:"match_number"`
	Player1ID    int         `json:"player1_id" db:"player1_id"`
	Player2ID    int         `json:"player2_id" db:"player2_id"`
	Player1Score *int        `json:"player1_score,omitempty" db:"player1_score"`
	Player2Score *int        `json:"player2_score,omitempty" db:"player2_score"`
	Score        *string     `json:"score,omitempty" db:"score"`
	WinnerID     *int        `json:"winner_id,omitempty" db:"winner_id"`
	LoserID      *int        `json:"loser_id,omitempty" db:"loser_id"`
	Status       MatchStatus `json:"status" db:"status"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty" db:"scheduled_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty" db:"started_at"`
	EndedAt      *time.Time  `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

func (m *Match) Clone() *Match {
	c := *m
	c.Player1Score = clonePtr(m.Player1Score)
	c.Player2Score = clonePtr(m.Player2Score)
	c.Score = clonePtr(m.Score)
	c.WinnerID = clonePtr(m.WinnerID)
	c.LoserID = clonePtr(m.LoserID)
	c.ScheduledAt = clonePtr(m.ScheduledAt)
	c.StartedAt = clonePtr(m.StartedAt)
	c.EndedAt = clonePtr(m.EndedAt)
	return &c
}

func (m *Match) HasPlayer(userID int) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}

// Opponent returns the other side of the match for a participating user.
func (m *Match) Opponent(userID int) int {
	if m.Player1ID == userID {
		return m.Player2ID
	}
	return m.Player1ID
}

// MatchResult is the input of a result application.
type MatchResult struct {
	MatchID      int
	WinnerID     int
	Player1Score *int
	Player2Score *int
	Score        *string
	At           time.Time
}
