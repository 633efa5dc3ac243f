package repositories

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/esports-platform/models"
)

// --- Tournaments ---

func (s *memoryStorage) CreateTournament(ctx context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[t.GameID]; !ok {
		return ErrTournamentGameInvalid
	}
	if _, ok := s.users[t.CreatedBy]; !ok {
		return ErrUserNotFound
	}
	s.nextTournamentID++
	t.ID = s.nextTournamentID
	t.Status = models.StatusUpcoming
	t.CurrentParticipants = 0
	t.CreatedAt = s.now()
	stored := t.Clone()
	stored.Game = nil
	s.tournaments[t.ID] = stored
	return nil
}

func (s *memoryStorage) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t.Clone(), nil
}

func (s *memoryStorage) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Tournament, 0)
	for _, t := range s.tournaments {
		if filter.GameID != nil && t.GameID != *filter.GameID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		result = append(result, *t.Clone())
	}
	sortTournaments(result)

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []models.Tournament{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *memoryStorage) ListTournamentsByUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Tournament, 0)
	for key := range s.participants {
		if key.userID != userID {
			continue
		}
		if t, ok := s.tournaments[key.tournamentID]; ok {
			result = append(result, *t.Clone())
		}
	}
	sortTournaments(result)
	return result, nil
}

func sortTournaments(ts []models.Tournament) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].StartDate.Equal(ts[j].StartDate) {
			return ts[i].StartDate.Before(ts[j].StartDate)
		}
		return ts[i].ID < ts[j].ID
	})
}

func (s *memoryStorage) UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (s *memoryStorage) CountTournaments(ctx context.Context, status *models.TournamentStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == nil {
		return len(s.tournaments), nil
	}
	n := 0
	for _, t := range s.tournaments {
		if t.Status == *status {
			n++
		}
	}
	return n, nil
}

func (s *memoryStorage) ReconcileParticipantCounts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := make(map[int]int)
	for key, p := range s.participants {
		if p.Status == models.ParticipantActive {
			active[key.tournamentID]++
		}
	}
	fixed := 0
	for id, t := range s.tournaments {
		if t.CurrentParticipants != active[id] {
			t.CurrentParticipants = active[id]
			fixed++
		}
	}
	return fixed, nil
}

// --- Participants ---

func (s *memoryStorage) RegisterParticipant(ctx context.Context, p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[p.TournamentID]
	if !ok {
		return ErrTournamentNotFound
	}
	key := participantKey{tournamentID: p.TournamentID, userID: p.UserID}
	if _, exists := s.participants[key]; exists {
		return ErrParticipantConflict
	}
	if t.IsFull() {
		return ErrTournamentFull
	}
	if _, ok := s.users[p.UserID]; !ok {
		return ErrParticipantUserInvalid
	}
	profile, err := s.profileLocked(p.UserID)
	if err != nil {
		return err
	}

	s.nextParticipantID++
	p.ID = s.nextParticipantID
	p.Status = models.ParticipantActive
	p.JoinedAt = s.now()
	stored := p.Clone()
	stored.User = nil
	s.participants[key] = stored
	t.CurrentParticipants++
	profile.RecordTournamentJoined(t.Title, t.GameID, p.JoinedAt)
	return nil
}

func (s *memoryStorage) ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Participant, 0)
	for key, p := range s.participants {
		if key.tournamentID != tournamentID {
			continue
		}
		c := *p.Clone()
		if u, ok := s.users[p.UserID]; ok {
			public := u.Clone()
			c.User = &models.User{
				ID:          public.ID,
				Username:    public.Username,
				DisplayName: public.DisplayName,
				AvatarURL:   public.AvatarURL,
				Country:     public.Country,
			}
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].JoinedAt.Before(result[j].JoinedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *memoryStorage) IsUserRegistered(ctx context.Context, userID, tournamentID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.participants[participantKey{tournamentID: tournamentID, userID: userID}]
	return ok, nil
}

func (s *memoryStorage) UpdateParticipantStatus(ctx context.Context, tournamentID, userID int, status models.ParticipantStatus) (*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	p, ok := s.participants[participantKey{tournamentID: tournamentID, userID: userID}]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	if p.Status != status {
		if status == models.ParticipantActive {
			if t.IsFull() {
				return nil, ErrTournamentFull
			}
			t.CurrentParticipants++
		} else {
			t.CurrentParticipants--
		}
		p.Status = status
	}
	return p.Clone(), nil
}

// --- Matches ---

func (s *memoryStorage) CreateMatch(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[m.TournamentID]; !ok {
		return ErrMatchTournamentInvalid
	}
	if _, ok := s.users[m.Player1ID]; !ok {
		return ErrMatchPlayerInvalid
	}
	if _, ok := s.users[m.Player2ID]; !ok {
		return ErrMatchPlayerInvalid
	}
	s.nextMatchID++
	m.ID = s.nextMatchID
	m.Status = models.MatchScheduled
	m.CreatedAt = s.now()
	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *memoryStorage) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *memoryStorage) ListMatchesByTournament(ctx context.Context, tournamentID int) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Match, 0)
	for _, m := range s.matches {
		if m.TournamentID == tournamentID {
			result = append(result, *m.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.MatchNumber != b.MatchNumber {
			return a.MatchNumber < b.MatchNumber
		}
		return a.ID < b.ID
	})
	return result, nil
}

func (s *memoryStorage) ListMatchesByUser(ctx context.Context, userID int) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]models.Match, 0)
	for _, m := range s.matches {
		if m.HasPlayer(userID) {
			result = append(result, *m.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *memoryStorage) StartMatch(ctx context.Context, id int, at time.Time) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Status != models.MatchScheduled {
		return nil, ErrMatchStatusConflict
	}
	m.Status = models.MatchLive
	m.StartedAt = &at
	return m.Clone(), nil
}

func (s *memoryStorage) ApplyMatchResult(ctx context.Context, res models.MatchResult) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[res.MatchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.WinnerID != nil || m.Status == models.MatchCompleted {
		return nil, ErrMatchAlreadyCompleted
	}
	if !m.HasPlayer(res.WinnerID) {
		return nil, ErrMatchWinnerInvalid
	}
	loserID := m.Opponent(res.WinnerID)

	// Профили создаются до любых изменений, чтобы ошибка не оставила полузаписанный результат.
	winnerProfile, err := s.profileLocked(res.WinnerID)
	if err != nil {
		return nil, err
	}
	loserProfile, err := s.profileLocked(loserID)
	if err != nil {
		return nil, err
	}

	winnerID := res.WinnerID
	endedAt := res.At
	m.WinnerID = &winnerID
	m.LoserID = &loserID
	m.Player1Score = copyPtr(res.Player1Score)
	m.Player2Score = copyPtr(res.Player2Score)
	m.Score = copyPtr(res.Score)
	m.Status = models.MatchCompleted
	m.EndedAt = &endedAt

	winner := s.standingLocked(res.WinnerID)
	winner.Points += models.WinPoints
	winner.Wins++
	winner.UpdatedAt = res.At
	loser := s.standingLocked(loserID)
	loser.Losses++
	loser.UpdatedAt = res.At
	s.recomputeRanksLocked()

	var title string
	var gameID int
	if t, ok := s.tournaments[m.TournamentID]; ok {
		title, gameID = t.Title, t.GameID
	}
	winnerProfile.RecordMatch(title, gameID, true, res.At)
	loserProfile.RecordMatch(title, gameID, false, res.At)

	return m.Clone(), nil
}

func (s *memoryStorage) standingLocked(userID int) *models.LeaderboardEntry {
	e, ok := s.leaderboard[userID]
	if !ok {
		e = &models.LeaderboardEntry{UserID: userID}
		s.leaderboard[userID] = e
	}
	return e
}

func (s *memoryStorage) CountMatches(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches), nil
}
