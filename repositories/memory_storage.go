package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/ranking"
)

type participantKey struct {
	tournamentID int
	userID       int
}

// memoryStorage keeps everything in maps guarded by one lock. Every
// check-then-write sequence runs under the write lock, so uniqueness and
// capacity checks cannot race. Values handed out are always copies.
type memoryStorage struct {
	mu  sync.RWMutex
	now func() time.Time

	users        map[int]*models.User
	usernames    map[string]int
	emails       map[string]int
	games        map[int]*models.Game
	tournaments  map[int]*models.Tournament
	participants map[participantKey]*models.Participant
	matches      map[int]*models.Match
	leaderboard  map[int]*models.LeaderboardEntry
	profiles     map[int]*models.UserProfile

	nextUserID        int
	nextGameID        int
	nextTournamentID  int
	nextParticipantID int
	nextMatchID       int
}

func NewMemoryStorage() Storage {
	return &memoryStorage{
		now:          func() time.Time { return time.Now().UTC() },
		users:        make(map[int]*models.User),
		usernames:    make(map[string]int),
		emails:       make(map[string]int),
		games:        make(map[int]*models.Game),
		tournaments:  make(map[int]*models.Tournament),
		participants: make(map[participantKey]*models.Participant),
		matches:      make(map[int]*models.Match),
		leaderboard:  make(map[int]*models.LeaderboardEntry),
		profiles:     make(map[int]*models.UserProfile),
	}
}

// --- Users ---

func (s *memoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(user.Username)
	email := strings.ToLower(user.Email)
	if _, ok := s.usernames[username]; ok {
		return ErrUserUsernameConflict
	}
	if _, ok := s.emails[email]; ok {
		return ErrUserEmailConflict
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = s.now()

	s.users[user.ID] = user.Clone()
	s.usernames[username] = user.ID
	s.emails[email] = user.ID
	s.leaderboard[user.ID] = &models.LeaderboardEntry{UserID: user.ID, UpdatedAt: user.CreatedAt}
	s.recomputeRanksLocked()
	return nil
}

func (s *memoryStorage) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *memoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[strings.ToLower(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *memoryStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *memoryStorage) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (s *memoryStorage) UpdateUserRole(ctx context.Context, id int, role models.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (s *memoryStorage) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// --- Games ---

func (s *memoryStorage) CreateGame(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if strings.EqualFold(g.Name, game.Name) {
			return ErrGameNameConflict
		}
	}
	s.nextGameID++
	game.ID = s.nextGameID
	game.CreatedAt = s.now()
	stored := game.Clone()
	stored.ActivePlayers, stored.TournamentCount, stored.TotalPrizePool = 0, 0, 0
	s.games[game.ID] = stored
	return nil
}

func (s *memoryStorage) GetGameByID(ctx context.Context, id int) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	c := s.gameWithCountersLocked(g)
	return &c, nil
}

func (s *memoryStorage) ListGames(ctx context.Context, filter ListGamesFilter) ([]models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		if !filter.NoGenreFilter() && !strings.EqualFold(g.Genre, filter.Genre) {
			continue
		}
		games = append(games, s.gameWithCountersLocked(g))
	}

	sort.Slice(games, func(i, j int) bool {
		a, b := games[i], games[j]
		switch filter.Sort {
		case models.GameSortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		case models.GameSortPopular:
			if a.ActivePlayers != b.ActivePlayers {
				return a.ActivePlayers > b.ActivePlayers
			}
		case models.GameSortTournaments:
			if a.TournamentCount != b.TournamentCount {
				return a.TournamentCount > b.TournamentCount
			}
		case models.GameSortPrizePool:
			if a.TotalPrizePool != b.TotalPrizePool {
				return a.TotalPrizePool > b.TotalPrizePool
			}
		}
		return a.ID < b.ID
	})
	return games, nil
}

func (s *memoryStorage) ListGenres(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	genres := make([]string, 0)
	for _, g := range s.games {
		genre := strings.ToLower(g.Genre)
		if !seen[genre] {
			seen[genre] = true
			genres = append(genres, genre)
		}
	}
	sort.Strings(genres)
	return genres, nil
}

func (s *memoryStorage) UpdateGameImage(ctx context.Context, id int, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return ErrGameNotFound
	}
	g.ImageURL = &imageURL
	return nil
}

func (s *memoryStorage) gameWithCountersLocked(g *models.Game) models.Game {
	c := *g.Clone()
	players := make(map[int]bool)
	for _, t := range s.tournaments {
		if t.GameID != g.ID {
			continue
		}
		c.TournamentCount++
		c.TotalPrizePool += t.PrizePool
	}
	for key, p := range s.participants {
		if p.Status != models.ParticipantActive {
			continue
		}
		if t, ok := s.tournaments[key.tournamentID]; ok && t.GameID == g.ID {
			players[p.UserID] = true
		}
	}
	c.ActivePlayers = len(players)
	return c
}

// --- Leaderboard ---

func (s *memoryStorage) GetLeaderboard(ctx context.Context, filter LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.LeaderboardEntry, 0, len(s.leaderboard))
	for _, e := range s.leaderboard {
		entry := s.entryLocked(e)
		if filter.Country != "" && !strings.EqualFold(filter.Country, "all") {
			if entry.Country == nil || !strings.EqualFold(*entry.Country, filter.Country) {
				continue
			}
		}
		if filter.GameID > 0 && !s.playedGameLocked(e.UserID, filter.GameID) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].UserID < entries[j].UserID
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (s *memoryStorage) playedGameLocked(userID, gameID int) bool {
	for key := range s.participants {
		if key.userID != userID {
			continue
		}
		if t, ok := s.tournaments[key.tournamentID]; ok && t.GameID == gameID {
			return true
		}
	}
	return false
}

func (s *memoryStorage) GetLeaderboardEntry(ctx context.Context, userID int) (*models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.leaderboard[userID]
	if !ok {
		return nil, ErrLeaderboardEntryNotFound
	}
	entry := s.entryLocked(e)
	return &entry, nil
}

func (s *memoryStorage) AdjustPoints(ctx context.Context, userID, delta int) (*models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.leaderboard[userID]
	if !ok {
		return nil, ErrLeaderboardEntryNotFound
	}
	if e.Points+delta < 0 {
		return nil, ErrLeaderboardNegativePoints
	}
	if e.Points+delta > MaxLeaderboardPoints {
		return nil, ErrLeaderboardPointsOverflow
	}
	profile, err := s.profileLocked(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	e.Points += delta
	e.UpdatedAt = now
	profile.Points = max(profile.Points+delta, 0)
	profile.UpdatedAt = now
	s.recomputeRanksLocked()
	entry := s.entryLocked(e)
	return &entry, nil
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *memoryStorage) entryLocked(e *models.LeaderboardEntry) models.LeaderboardEntry {
	entry := *e
	if u, ok := s.users[e.UserID]; ok {
		entry.Username = u.Username
		entry.Country = copyPtr(u.Country)
	}
	entry.FillDerived()
	return entry
}

func (s *memoryStorage) recomputeRanksLocked() {
	standings := make([]ranking.Standing, 0, len(s.leaderboard))
	for _, e := range s.leaderboard {
		standings = append(standings, ranking.Standing{UserID: e.UserID, Points: e.Points})
	}
	for userID, rank := range ranking.Assign(standings) {
		s.leaderboard[userID].Rank = rank
	}
}

// --- Profiles ---

func (s *memoryStorage) GetOrCreateProfile(ctx context.Context, userID int) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileLocked(userID)
	if err != nil {
		return nil, err
	}
	return s.profileViewLocked(p), nil
}

func (s *memoryStorage) UpdateProfile(ctx context.Context, userID int, upd models.ProfileUpdate) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if upd.MainGameID != nil {
		if _, ok := s.games[*upd.MainGameID]; !ok {
			return nil, ErrProfileGameInvalid
		}
	}
	p, err := s.profileLocked(userID)
	if err != nil {
		return nil, err
	}
	p.Apply(upd, s.now())
	return s.profileViewLocked(p), nil
}

// profileLocked returns the stored profile, creating it on first access.
func (s *memoryStorage) profileLocked(userID int) (*models.UserProfile, error) {
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	if _, ok := s.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	p := models.NewUserProfile(userID, s.now())
	s.profiles[userID] = p
	return p, nil
}

func (s *memoryStorage) profileViewLocked(p *models.UserProfile) *models.UserProfile {
	c := p.Clone()
	c.Rank = nil
	if e, ok := s.leaderboard[p.UserID]; ok {
		rank := e.Rank
		c.Rank = &rank
	}
	return c
}
