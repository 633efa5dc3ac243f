package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type MatchService interface {
	CreateMatch(ctx context.Context, actor Actor, tournamentID int, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int) ([]models.Match, error)
	ListUserMatches(ctx context.Context, userID int) ([]models.Match, error)
	StartMatch(ctx context.Context, actor Actor, matchID int) (*models.Match, error)
	RecordResult(ctx context.Context, actor Actor, matchID int, input RecordResultInput) (*models.Match, error)
}

type CreateMatchInput struct {
	Round       int        `json:"round"`
	MatchNumber int        `json:"match_number"`
	Player1ID   int        `json:"player1_id"`
	Player2ID   int        `json:"player2_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (in CreateMatchInput) validate() error {
	errs := fieldErrors{}
	if in.Round < 1 {
		errs.add("round", "must be at least 1")
	}
	if in.MatchNumber < 1 {
		errs.add("match_number", "must be at least 1")
	}
	if in.Player1ID <= 0 {
		errs.add("player1_id", "is required")
	}
	if in.Player2ID <= 0 {
		errs.add("player2_id", "is required")
	}
	if in.Player1ID > 0 && in.Player1ID == in.Player2ID {
		errs.add("player2_id", "must differ from player1_id")
	}
	return errs.err()
}

// RecordResultInput describes a finished match. Score may be given as a
// display string ("2-1"), as two numbers, or both.
type RecordResultInput struct {
	WinnerID     int     `json:"winner_id"`
	Score        *string `json:"score"`
	Player1Score *int    `json:"player1_score"`
	Player2Score *int    `json:"player2_score"`
}

type matchService struct {
	matches      repositories.MatchRepository
	tournaments  repositories.TournamentRepository
	participants repositories.ParticipantRepository
	leaderboard  repositories.LeaderboardRepository
	metrics      Recorder
	hub          live.Broadcaster
	now          func() time.Time
	logger       *slog.Logger
}

func NewMatchService(store repositories.Storage, recorder Recorder, hub live.Broadcaster, logger *slog.Logger) MatchService {
	return &matchService{
		matches:      store,
		tournaments:  store,
		participants: store,
		leaderboard:  store,
		metrics:      orNopRecorder(recorder),
		hub:          orNopBroadcaster(hub),
		now:          func() time.Time { return time.Now().UTC() },
		logger:       orDiscardLogger(logger),
	}
}

func (s *matchService) CreateMatch(ctx context.Context, actor Actor, tournamentID int, input CreateMatchInput) (*models.Match, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !actor.canManage(t) {
		return nil, ErrForbidden
	}

	errs := fieldErrors{}
	for field, userID := range map[string]int{"player1_id": input.Player1ID, "player2_id": input.Player2ID} {
		registered, err := s.participants.IsUserRegistered(ctx, userID, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to check participant %d: %w", userID, err)
		}
		if !registered {
			errs.add(field, "player is not registered for this tournament")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	m := &models.Match{
		TournamentID: tournamentID,
		Round:        input.Round,
		MatchNumber:  input.MatchNumber,
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		ScheduledAt:  input.ScheduledAt,
	}
	if err := s.matches.CreateMatch(ctx, m); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Match created", slog.Int("match_id", m.ID), slog.Int("tournament_id", tournamentID))
	s.hub.BroadcastToRoom(live.TournamentRoom(tournamentID), live.Message{Type: live.TypeMatchUpdated, Payload: m})
	return m, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matches.GetMatchByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matches.ListMatchesByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

func (s *matchService) ListUserMatches(ctx context.Context, userID int) ([]models.Match, error) {
	matches, err := s.matches.ListMatchesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of user %d: %w", userID, err)
	}
	return matches, nil
}

func (s *matchService) StartMatch(ctx context.Context, actor Actor, matchID int) (*models.Match, error) {
	if _, err := s.authorize(ctx, actor, matchID); err != nil {
		return nil, err
	}
	m, err := s.matches.StartMatch(ctx, matchID, s.now())
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.hub.BroadcastToRoom(live.TournamentRoom(m.TournamentID), live.Message{Type: live.TypeMatchUpdated, Payload: m})
	return m, nil
}

// RecordResult applies a result once: the winner gets models.WinPoints and a
// win, the loser a loss, and ranks are recomputed in the same unit.
func (s *matchService) RecordResult(ctx context.Context, actor Actor, matchID int, input RecordResultInput) (*models.Match, error) {
	current, err := s.authorize(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}

	p1, p2, display, err := normalizeScore(input)
	if err != nil {
		return nil, err
	}
	if input.WinnerID <= 0 {
		return nil, fieldError("winner_id", "is required")
	}
	if !current.HasPlayer(input.WinnerID) {
		return nil, ErrInvalidWinner
	}
	if p1 != nil && p2 != nil {
		winnerScore, loserScore := *p1, *p2
		if input.WinnerID == current.Player2ID {
			winnerScore, loserScore = *p2, *p1
		}
		if winnerScore <= loserScore {
			return nil, fieldError("score", "winner must have the higher score")
		}
	}

	m, err := s.matches.ApplyMatchResult(ctx, models.MatchResult{
		MatchID:      matchID,
		WinnerID:     input.WinnerID,
		Player1Score: p1,
		Player2Score: p2,
		Score:        display,
		At:           s.now(),
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.metrics.MatchResult()
	s.logger.InfoContext(ctx, "Match result recorded",
		slog.Int("match_id", m.ID),
		slog.Int("tournament_id", m.TournamentID),
		slog.Int("winner_id", input.WinnerID),
	)
	s.hub.BroadcastToRoom(live.TournamentRoom(m.TournamentID), live.Message{Type: live.TypeMatchUpdated, Payload: m})
	s.broadcastStandings(ctx, m.Player1ID, m.Player2ID)
	return m, nil
}

func (s *matchService) authorize(ctx context.Context, actor Actor, matchID int) (*models.Match, error) {
	m, err := s.matches.GetMatchByID(ctx, matchID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	t, err := s.tournaments.GetTournamentByID(ctx, m.TournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !actor.canManage(t) {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *matchService) broadcastStandings(ctx context.Context, userIDs ...int) {
	entries := make([]models.LeaderboardEntry, 0, len(userIDs))
	for _, id := range userIDs {
		entry, err := s.leaderboard.GetLeaderboardEntry(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to load standing for broadcast", slog.Int("user_id", id), slog.Any("error", err))
			continue
		}
		entries = append(entries, *entry)
	}
	s.hub.BroadcastToRoom(live.LeaderboardRoom, live.Message{Type: live.TypeLeaderboardUpdated, Payload: entries})
}

// normalizeScore fills numeric scores from the display string and vice versa.
func normalizeScore(in RecordResultInput) (p1, p2 *int, display *string, err error) {
	p1, p2 = in.Player1Score, in.Player2Score
	if in.Score != nil && strings.TrimSpace(*in.Score) != "" {
		s := strings.TrimSpace(*in.Score)
		a, b, ok := parseScore(s)
		if !ok {
			return nil, nil, nil, fieldError("score", `must look like "2-1"`)
		}
		if (p1 != nil && *p1 != a) || (p2 != nil && *p2 != b) {
			return nil, nil, nil, fieldError("score", "does not match player scores")
		}
		p1, p2, display = &a, &b, &s
	}
	if (p1 == nil) != (p2 == nil) {
		return nil, nil, nil, fieldError("score", "both player scores are required")
	}
	if p1 != nil && (*p1 < 0 || *p2 < 0) {
		return nil, nil, nil, fieldError("score", "must not be negative")
	}
	if p1 != nil && display == nil {
		d := strconv.Itoa(*p1) + "-" + strconv.Itoa(*p2)
		display = &d
	}
	return p1, p2, display, nil
}

func parseScore(s string) (int, int, bool) {
	left, right, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}
