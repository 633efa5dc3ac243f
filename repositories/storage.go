package repositories

import "database/sql"

// Storage is the single persistence contract used by the services. It is
// implemented by NewMemoryStorage and NewPostgresStorage, and both must pass
// the same test suite.
type Storage interface {
	UserRepository
	GameRepository
	TournamentRepository
	ParticipantRepository
	MatchRepository
	LeaderboardRepository
	ProfileRepository
}

type postgresStorage struct {
	UserRepository
	GameRepository
	TournamentRepository
	ParticipantRepository
	MatchRepository
	LeaderboardRepository
	ProfileRepository
}

func NewPostgresStorage(db *sql.DB) Storage {
	return &postgresStorage{
		UserRepository:        NewPostgresUserRepository(db),
		GameRepository:        NewPostgresGameRepository(db),
		TournamentRepository:  NewPostgresTournamentRepository(db),
		ParticipantRepository: NewPostgresParticipantRepository(db),
		MatchRepository:       NewPostgresMatchRepository(db),
		LeaderboardRepository: NewPostgresLeaderboardRepository(db),
		ProfileRepository:     NewPostgresProfileRepository(db),
	}
}
