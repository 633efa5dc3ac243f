package models

import (
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityTournamentJoined ActivityType = "tournament_joined"
	ActivityMatchWon         ActivityType = "match_won"
	ActivityMatchLost        ActivityType = "match_lost"
)

type Activity struct {
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Date        time.Time    `json:"date"`
}

type GameStat struct {
	GameID      int `json:"game_id"`
	Tournaments int `json:"tournaments"`
	Matches     int `json:"matches"`
	Wins        int `json:"wins"`
	Points      int `json:"points"`
}

type Achievement struct {
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

type UserProfile struct {
	UserID           int           `json:"user_id" db:"user_id"`
	DisplayName      *string       `json:"display_name,omitempty" db:"display_name"`
	Bio              *string       `json:"bio,omitempty" db:"bio"`
	Avatar           *string       `json:"avatar,omitempty" db:"avatar"`
	Country          *string       `json:"country,omitempty" db:"country"`
	MainGameID       *int          `json:"main_game_id,omitempty" db:"main_game_id"`
	TotalTournaments int           `json:"total_tournaments" db:"total_tournaments"`
	TotalMatches     int           `json:"total_matches" db:"total_matches"`
	Wins             int           `json:"wins" db:"wins"`
	Points           int           `json:"points" db:"points"`
	Rank             *int          `json:"rank,omitempty" db:"-"`
	GameStats        []GameStat    `json:"game_stats" db:"game_stats"`
	Achievements     []Achievement `json:"achievements" db:"achievements"`
	RecentActivity   []Activity    `json:"recent_activity" db:"recent_activity"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// ProfileUpdate holds the user-editable fields; nil means "leave as is".
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Avatar      *string
	Country     *string
	MainGameID  *int
}

func NewUserProfile(userID int, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:         userID,
		GameStats:      []GameStat{},
		Achievements:   []Achievement{},
		RecentActivity: []Activity{},
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy so callers never share slices with storage.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.DisplayName = clonePtr(p.DisplayName)
	c.Bio = clonePtr(p.Bio)
	c.Avatar = clonePtr(p.Avatar)
	c.Country = clonePtr(p.Country)
	c.MainGameID = clonePtr(p.MainGameID)
	c.Rank = clonePtr(p.Rank)
	c.GameStats = append(make([]GameStat, 0, len(p.GameStats)), p.GameStats...)
	c.Achievements = append(make([]Achievement, 0, len(p.Achievements)), p.Achievements...)
	c.RecentActivity = append(make([]Activity, 0, len(p.RecentActivity)), p.RecentActivity...)
	return &c
}

func (p *UserProfile) Apply(upd ProfileUpdate, now time.Time) {
	if upd.DisplayName != nil {
		p.DisplayName = clonePtr(upd.DisplayName)
	}
	if upd.Bio != nil {
		p.Bio = clonePtr(upd.Bio)
	}
	if upd.Avatar != nil {
		p.Avatar = clonePtr(upd.Avatar)
	}
	if upd.Country != nil {
		p.Country = clonePtr(upd.Country)
	}
	if upd.MainGameID != nil {
		v := *upd.MainGameID
		p.MainGameID = &v
	}
	p.UpdatedAt = now
}

// RecordTournamentJoined updates the profile after a successful registration.
func (p *UserProfile) RecordTournamentJoined(tournamentTitle string, gameID int, at time.Time) {
	p.TotalTournaments++
	stat := p.gameStat(gameID)
	stat.Tournaments++
	p.pushActivity(Activity{
		Type:        ActivityTournamentJoined,
		Description: "Joined tournament: " + tournamentTitle,
		Date:        at,
	})
	p.unlockAchievements(at)
	p.UpdatedAt = at
}

// RecordMatch updates the profile of one side of a completed match.
func (p *UserProfile) RecordMatch(tournamentTitle string, gameID int, won bool, at time.Time) {
	p.TotalMatches++
	stat := p.gameStat(gameID)
	stat.Matches++
	activity := Activity{Type: ActivityMatchLost, Description: "Lost a match in " + tournamentTitle, Date: at}
	if won {
		p.Wins++
		p.Points += WinPoints
		stat.Wins++
		stat.Points += WinPoints
		activity = Activity{Type: ActivityMatchWon, Description: "Won a match in " + tournamentTitle, Date: at}
	}
	p.pushActivity(activity)
	p.unlockAchievements(at)
	p.UpdatedAt = at
}

func (p *UserProfile) HasAchievement(code string) bool {
	for _, a := range p.Achievements {
		if a.Code == code {
			return true
		}
	}
	return false
}

func (p *UserProfile) gameStat(gameID int) *GameStat {
	for i := range p.GameStats {
		if p.GameStats[i].GameID == gameID {
			return &p.GameStats[i]
		}
	}
	p.GameStats = append(p.GameStats, GameStat{GameID: gameID})
	return &p.GameStats[len(p.GameStats)-1]
}

// Новые записи всегда в начале списка.
func (p *UserProfile) pushActivity(a Activity) {
	p.RecentActivity = append([]Activity{a}, p.RecentActivity...)
}

type achievementRule struct {
	code        string
	title       string
	description string
	reached     func(p *UserProfile) bool
}

var achievementRules = []achievementRule{
	{"first_tournament", "First Steps", "Joined your first tournament", func(p *UserProfile) bool { return p.TotalTournaments >= 1 }},
	{"tournament_regular", "Regular", "Joined 10 tournaments", func(p *UserProfile) bool { return p.TotalTournaments >= 10 }},
	{"first_victory", "First Blood", "Won your first match", func(p *UserProfile) bool { return p.Wins >= 1 }},
	{"veteran", "Veteran", fmt.Sprintf("Played %d matches", veteranMatches), func(p *UserProfile) bool { return p.TotalMatches >= veteranMatches }},
}

const veteranMatches = 25

func (p *UserProfile) unlockAchievements(at time.Time) {
	for _, rule := range achievementRules {
		if rule.reached(p) && !p.HasAchievement(rule.code) {
			p.Achievements = append(p.Achievements, Achievement{
				Code:        rule.code,
				Title:       rule.title,
				Description: rule.description,
				UnlockedAt:  at,
			})
		}
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
