package models

import "time"

type ParticipantStatus string

const (
	ParticipantActive       ParticipantStatus = "active"
	ParticipantDisqualified ParticipantStatus = "disqualified"
)

func (s ParticipantStatus) Valid() bool {
	return s == ParticipantActive || s == ParticipantDisqualified
}

type Participant struct {
	ID              int               `json:"id" db:"id"`
	TournamentID    int               `json:"tournament_id" db:"tournament_id"`
	UserID          int               `json:"user_id" db:"user_id"`
	TeamID          *int              `json:"team_id,omitempty" db:"team_id"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	Status          ParticipantStatus `json:"status" db:"status"`
	JoinedAt        time.Time         `json:"joined_at" db:"joined_at"`

	User *User `json:"user,omitempty" db:"-"`
}

func (p *Participant) Clone() *Participant {
	c := *p
	c.TeamID = clonePtr(p.TeamID)
	c.PaymentIntentID = clonePtr(p.PaymentIntentID)
	if p.User != nil {
		c.User = p.User.Clone()
	}
	return &c
}
