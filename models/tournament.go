package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие CHECK в БД.
type TournamentStatus string

const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusLive      TournamentStatus = "live"
	StatusCompleted TournamentStatus = "completed"
	StatusCanceled  TournamentStatus = "canceled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Tournament представляет турнир. Суммы хранятся в минимальных единицах валюты.
type Tournament struct {
	ID                  int              `json:"id" db:"id"`
	GameID              int              `json:"game_id" db:"game_id"`
	Title               string           `json:"title" db:"title"`
	Slug                string           `json:"slug" db:"slug"`
	Description         *string          `json:"description,omitempty" db:"description"`
	ImageURL            *string          `json:"image_url,omitempty" db:"image_url"`
	PrizePool           int64            `json:"prize_pool" db:"prize_pool"`
	EntryFee            int64            `json:"entry_fee" db:"entry_fee"`
	Currency            string           `json:"currency" db:"currency"`
	TeamSize            int              `json:"team_size" db:"team_size"`
	MaxParticipants     int              `json:"max_participants" db:"max_participants"`
	CurrentParticipants int              `json:"current_participants" db:"current_participants"`
	Region              *string          `json:"region,omitempty" db:"region"`
	Format              *string          `json:"format,omitempty" db:"format"`
	Rules               *string          `json:"rules,omitempty" db:"rules"`
	StartDate           time.Time        `json:"start_date" db:"start_date"`
	EndDate             *time.Time       `json:"end_date,omitempty" db:"end_date"`
	Status              TournamentStatus `json:"status" db:"status"`
	CreatedBy           int              `json:"created_by" db:"created_by"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`

	Game *Game `json:"game,omitempty" db:"-"`
}

func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Description = clonePtr(t.Description)
	c.ImageURL = clonePtr(t.ImageURL)
	c.Region = clonePtr(t.Region)
	c.Format = clonePtr(t.Format)
	c.Rules = clonePtr(t.Rules)
	c.EndDate = clonePtr(t.EndDate)
	if t.Game != nil {
		c.Game = t.Game.Clone()
	}
	return &c
}

func (t *Tournament) IsFull() bool {
	return t.CurrentParticipants >= t.MaxParticipants
}

func (t *Tournament) RequiresPayment() bool {
	return t.EntryFee > 0
}
