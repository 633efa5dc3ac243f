package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"golang.org/x/sync/errgroup"
)

type AdminService interface {
	GetStats(ctx context.Context) (models.PlatformStats, error)
	PromoteUser(ctx context.Context, username string) (*models.User, error)
}

type adminService struct {
	users       repositories.UserRepository
	tournaments repositories.TournamentRepository
	matches     repositories.MatchRepository
	logger      *slog.Logger
}

func NewAdminService(store repositories.Storage, logger *slog.Logger) AdminService {
	return &adminService{users: store, tournaments: store, matches: store, logger: orDiscardLogger(logger)}
}

func (s *adminService) GetStats(ctx context.Context) (models.PlatformStats, error) {
	var stats models.PlatformStats
	live := models.StatusLive

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.UsersTotal, err = s.users.CountUsers(gCtx)
		return err
	})
	g.Go(func() (err error) {
		stats.TournamentsTotal, err = s.tournaments.CountTournaments(gCtx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.LiveTournaments, err = s.tournaments.CountTournaments(gCtx, &live)
		return err
	})
	g.Go(func() (err error) {
		stats.MatchesTotal, err = s.matches.CountMatches(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.PlatformStats{}, fmt.Errorf("failed to collect platform stats: %w", err)
	}
	return stats, nil
}

// PromoteUser grants the admin role. Used by the CLI.
func (s *adminService) PromoteUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	user.PasswordHash = ""
	if user.Role == models.RoleAdmin {
		return user, nil
	}
	if err := s.users.UpdateUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return nil, handleRepositoryError(err)
	}
	user.Role = models.RoleAdmin
	s.logger.InfoContext(ctx, "User promoted to admin", slog.Int("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}
