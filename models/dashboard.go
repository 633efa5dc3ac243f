package models

type PlatformStats struct {
	UsersTotal       int `json:"users_total"`
	TournamentsTotal int `json:"tournaments_total"`
	LiveTournaments  int `json:"live_tournaments"`
	MatchesTotal     int `json:"matches_total"`
}

// Dashboard собирает всё, что нужно игроку на главной странице.
type Dashboard struct {
	Profile     *UserProfile      `json:"profile"`
	Standing    *LeaderboardEntry `json:"standing"`
	Tournaments []Tournament      `json:"tournaments"`
	Matches     []Match           `json:"matches"`
}
