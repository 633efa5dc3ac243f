package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/Dosada05/esports-platform/storage"
	"golang.org/x/sync/errgroup"
)

type UserService interface {
	GetUser(ctx context.Context, userID int) (*models.User, error)
	GetStanding(ctx context.Context, userID int) (*models.LeaderboardEntry, error)
	GetProfile(ctx context.Context, userID int) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.UserProfile, error)
	UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.UserProfile, error)
	GetDashboard(ctx context.Context, userID int) (*models.Dashboard, error)
}

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	Country     *string `json:"country"`
	MainGameID  *int    `json:"main_game_id"`
}

func (in UpdateProfileInput) validate() error {
	errs := fieldErrors{}
	if in.DisplayName != nil && len(*in.DisplayName) > 50 {
		errs.add("display_name", "must be at most 50 characters")
	}
	if in.Bio != nil && len(*in.Bio) > 500 {
		errs.add("bio", "must be at most 500 characters")
	}
	if in.Country != nil && *in.Country != "" && !models.IsKnownCountry(*in.Country) {
		errs.add("country", "unknown country code")
	}
	if in.MainGameID != nil && *in.MainGameID <= 0 {
		errs.add("main_game_id", "must be a positive id")
	}
	return errs.err()
}

type userService struct {
	users       repositories.UserRepository
	profiles    repositories.ProfileRepository
	leaderboard repositories.LeaderboardRepository
	tournaments repositories.TournamentRepository
	matches     repositories.MatchRepository
	uploader    storage.FileUploader
	logger      *slog.Logger
}

// NewUserService builds the profile/dashboard service. uploader may be nil when
// object storage is not configured.
func NewUserService(
	store repositories.Storage,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		users:       store,
		profiles:    store,
		leaderboard: store,
		tournaments: store,
		matches:     store,
		uploader:    uploader,
		logger:      orDiscardLogger(logger),
	}
}

func (s *userService) GetUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	public := user.Public()
	return &public, nil
}

func (s *userService) GetStanding(ctx context.Context, userID int) (*models.LeaderboardEntry, error) {
	entry, err := s.leaderboard.GetLeaderboardEntry(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return entry, nil
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.UserProfile, error) {
	profile, err := s.profiles.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*models.UserProfile, error) {
	input.DisplayName = trimmedPtr(input.DisplayName)
	input.Bio = trimmedPtr(input.Bio)
	if err := input.validate(); err != nil {
		return nil, err
	}
	profile, err := s.profiles.UpdateProfile(ctx, userID, models.ProfileUpdate{
		DisplayName: input.DisplayName,
		Bio:         input.Bio,
		Country:     input.Country,
		MainGameID:  input.MainGameID,
	})
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return profile, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.UserProfile, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fieldError("avatar", err.Error())
	}
	// Профиль должен существовать до загрузки, иначе файл останется сиротой.
	if _, err := s.profiles.GetOrCreateProfile(ctx, userID); err != nil {
		return nil, handleRepositoryError(err)
	}

	key := storage.ObjectKey("avatars", strconv.Itoa(userID), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user %d: %w", userID, err)
	}

	profile, err := s.profiles.UpdateProfile(ctx, userID, models.ProfileUpdate{Avatar: &result.Location})
	if err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to delete orphaned avatar", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Avatar updated", slog.Int("user_id", userID), slog.String("key", key))
	return profile, nil
}

func (s *userService) GetDashboard(ctx context.Context, userID int) (*models.Dashboard, error) {
	dashboard := &models.Dashboard{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := s.profiles.GetOrCreateProfile(gCtx, userID)
		if err != nil {
			return handleRepositoryError(err)
		}
		dashboard.Profile = profile
		return nil
	})
	g.Go(func() error {
		entry, err := s.leaderboard.GetLeaderboardEntry(gCtx, userID)
		if err != nil {
			return handleRepositoryError(err)
		}
		dashboard.Standing = entry
		return nil
	})
	g.Go(func() error {
		tournaments, err := s.tournaments.ListTournamentsByUser(gCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to load tournaments for dashboard: %w", err)
		}
		dashboard.Tournaments = tournaments
		return nil
	})
	g.Go(func() error {
		matches, err := s.matches.ListMatchesByUser(gCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to load matches for dashboard: %w", err)
		}
		dashboard.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}
