package models

import "time"

type GameSort string

const (
	GameSortDefault     GameSort = ""
	GameSortNewest      GameSort = "newest"
	GameSortPopular     GameSort = "popular"
	GameSortTournaments GameSort = "tournaments"
	GameSortPrizePool   GameSort = "prizepool"
)

func (s GameSort) Valid() bool {
	switch s {
	case GameSortDefault, GameSortNewest, GameSortPopular, GameSortTournaments, GameSortPrizePool:
		return true
	}
	return false
}

type Game struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	IconURL     *string   `json:"icon_url,omitempty" db:"icon_url"`
	Genre       string    `json:"genre" db:"genre"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	// Считаются при чтении
	ActivePlayers   int   `json:"active_players" db:"-"`
	TournamentCount int   `json:"tournament_count" db:"-"`
	TotalPrizePool  int64 `json:"total_prize_pool" db:"-"`
}

func (g *Game) Clone() *Game {
	c := *g
	c.Description = clonePtr(g.Description)
	c.ImageURL = clonePtr(g.ImageURL)
	c.IconURL = clonePtr(g.IconURL)
	return &c
}

// GameListItem is the short form used by dropdowns.
type GameListItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
