package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

const (
	defaultLeaderboardLimit = 100
	maxLeaderboardLimit     = 500
	TopPlayersLimit         = 5
)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, query LeaderboardQuery) ([]models.LeaderboardEntry, error)
	GetTopPlayers(ctx context.Context) ([]models.LeaderboardEntry, error)
	AdjustPoints(ctx context.Context, actor Actor, userID int, input AdjustPointsInput) (*models.LeaderboardEntry, error)
}

// LeaderboardQuery narrows the listing. Empty Country or "all" and a zero
// GameID mean no filter.
type LeaderboardQuery struct {
	Country string
	GameID  int
	Limit   int
}

type AdjustPointsInput struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type leaderboardService struct {
	leaderboard repositories.LeaderboardRepository
	hub         live.Broadcaster
	logger      *slog.Logger
}

func NewLeaderboardService(leaderboard repositories.LeaderboardRepository, hub live.Broadcaster, logger *slog.Logger) LeaderboardService {
	return &leaderboardService{leaderboard: leaderboard, hub: orNopBroadcaster(hub), logger: orDiscardLogger(logger)}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, query LeaderboardQuery) ([]models.LeaderboardEntry, error) {
	country := strings.TrimSpace(query.Country)
	errs := fieldErrors{}
	if country != "" && !strings.EqualFold(country, "all") && !models.IsKnownCountry(strings.ToUpper(country)) {
		errs.add("country", "unknown country code")
	}
	if query.GameID < 0 {
		errs.add("game", "must be a positive id")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}
	entries, err := s.leaderboard.GetLeaderboard(ctx, repositories.LeaderboardFilter{
		Country: country,
		GameID:  query.GameID,
		Limit:   clampLimit(query.Limit, defaultLeaderboardLimit, maxLeaderboardLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return entries, nil
}

func (s *leaderboardService) GetTopPlayers(ctx context.Context) ([]models.LeaderboardEntry, error) {
	return s.GetLeaderboard(ctx, LeaderboardQuery{Limit: TopPlayersLimit})
}

func (s *leaderboardService) AdjustPoints(ctx context.Context, actor Actor, userID int, input AdjustPointsInput) (*models.LeaderboardEntry, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	errs := fieldErrors{}
	switch {
	case input.Delta == 0:
		errs.add("delta", "must not be zero")
	case input.Delta > repositories.MaxLeaderboardPoints || input.Delta < -repositories.MaxLeaderboardPoints:
		errs.add("delta", "is out of range")
	}
	if strings.TrimSpace(input.Reason) == "" {
		errs.add("reason", "is required")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	entry, err := s.leaderboard.AdjustPoints(ctx, userID, input.Delta)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Leaderboard points adjusted",
		slog.Int("user_id", userID),
		slog.Int("delta", input.Delta),
		slog.String("reason", input.Reason),
		slog.Int("admin_id", actor.UserID),
	)
	s.hub.BroadcastToRoom(live.LeaderboardRoom, live.Message{
		Type:    live.TypeLeaderboardUpdated,
		Payload: []models.LeaderboardEntry{*entry},
	})
	return entry, nil
}
