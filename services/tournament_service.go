package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Dosada05/esports-platform/live"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/gosimple/slug"
)

const (
	defaultTournamentPage = 50
	maxTournamentPage     = 100
)

var currencyPattern = regexp.MustCompile(`^[a-z]{3}$`)

type TournamentService interface {
	CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter TournamentListFilter) ([]models.Tournament, error)
	ListLiveTournaments(ctx context.Context) ([]models.Tournament, error)
	ListUserTournaments(ctx context.Context, userID int) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error)
	ListParticipants(ctx context.Context, tournamentID int) ([]models.Participant, error)
	UpdateParticipantStatus(ctx context.Context, actor Actor, tournamentID, userID int, status models.ParticipantStatus) (*models.Participant, error)
}

type CreateTournamentInput struct {
	Title           string     `json:"title"`
	GameID          int        `json:"game_id"`
	Description     *string    `json:"description"`
	ImageURL        *string    `json:"image_url"`
	PrizePool       int64      `json:"prize_pool"`
	EntryFee        int64      `json:"entry_fee"`
	Currency        string     `json:"currency"`
	TeamSize        int        `json:"team_size"`
	MaxParticipants int        `json:"max_participants"`
	Region          *string    `json:"region"`
	Format          *string    `json:"format"`
	Rules           *string    `json:"rules"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
}

func (in CreateTournamentInput) validate() error {
	errs := fieldErrors{}
	if in.Title == "" {
		errs.add("title", "is required")
	} else if len(in.Title) > 120 {
		errs.add("title", "must be at most 120 characters")
	}
	if in.GameID <= 0 {
		errs.add("game_id", "is required")
	}
	if in.PrizePool < 0 {
		errs.add("prize_pool", "must not be negative")
	}
	if in.EntryFee < 0 {
		errs.add("entry_fee", "must not be negative")
	}
	if !currencyPattern.MatchString(in.Currency) {
		errs.add("currency", "must be a three-letter ISO code")
	}
	if in.TeamSize < 1 {
		errs.add("team_size", "must be at least 1")
	}
	if in.MaxParticipants < 1 {
		errs.add("max_participants", "must be at least 1")
	}
	if in.Region != nil && !models.IsKnownRegion(*in.Region) {
		errs.add("region", "unknown region")
	}
	if in.StartDate.IsZero() {
		errs.add("start_date", "is required")
	} else if in.EndDate != nil && !in.EndDate.After(in.StartDate) {
		errs.add("end_date", "must be after start_date")
	}
	return errs.err()
}

// TournamentListFilter is the query of GET /api/tournaments.
type TournamentListFilter struct {
	GameID *int
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type tournamentService struct {
	tournaments     repositories.TournamentRepository
	participants    repositories.ParticipantRepository
	games           repositories.GameRepository
	defaultCurrency string
	hub             live.Broadcaster
	logger          *slog.Logger
}

func NewTournamentService(store repositories.Storage, defaultCurrency string, hub live.Broadcaster, logger *slog.Logger) TournamentService {
	return &tournamentService{
		tournaments:     store,
		participants:    store,
		games:           store,
		defaultCurrency: strings.ToLower(defaultCurrency),
		hub:             orNopBroadcaster(hub),
		logger:          orDiscardLogger(logger),
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Currency = strings.ToLower(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = s.defaultCurrency
	}
	if input.TeamSize == 0 {
		input.TeamSize = 1
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		GameID:          input.GameID,
		Title:           input.Title,
		Slug:            slug.Make(input.Title),
		Description:     trimmedPtr(input.Description),
		ImageURL:        input.ImageURL,
		PrizePool:       input.PrizePool,
		EntryFee:        input.EntryFee,
		Currency:        input.Currency,
		TeamSize:        input.TeamSize,
		MaxParticipants: input.MaxParticipants,
		Region:          input.Region,
		Format:          trimmedPtr(input.Format),
		Rules:           trimmedPtr(input.Rules),
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate,
		CreatedBy:       actor.UserID,
	}
	if err := s.tournaments.CreateTournament(ctx, t); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int("game_id", t.GameID),
		slog.Int("created_by", actor.UserID),
	)
	s.attachGame(ctx, t)
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournaments.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	s.attachGame(ctx, t)
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter TournamentListFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fieldError("status", "unknown tournament status")
	}
	if filter.Offset < 0 {
		return nil, fieldError("offset", "must not be negative")
	}
	tournaments, err := s.tournaments.ListTournaments(ctx, repositories.ListTournamentsFilter{
		GameID: filter.GameID,
		Status: filter.Status,
		Limit:  clampLimit(filter.Limit, defaultTournamentPage, maxTournamentPage),
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) ListLiveTournaments(ctx context.Context) ([]models.Tournament, error) {
	status := models.StatusLive
	return s.ListTournaments(ctx, TournamentListFilter{Status: &status, Limit: maxTournamentPage})
}

func (s *tournamentService) ListUserTournaments(ctx context.Context, userID int) ([]models.Tournament, error) {
	tournaments, err := s.tournaments.ListTournamentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments for user %d: %w", userID, err)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, fieldError("status", "unknown tournament status")
	}
	t, err := s.tournaments.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !actor.canManage(t) {
		return nil, ErrForbidden
	}
	if !isValidStatusTransition(t.Status, status) {
		return nil, ErrInvalidStatusTransition
	}
	if t.Status == status {
		return t, nil
	}
	if err := s.tournaments.UpdateTournamentStatus(ctx, id, status); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("from", string(t.Status)),
		slog.String("to", string(status)),
	)
	t.Status = status
	s.hub.BroadcastToRoom(live.TournamentRoom(id), live.Message{Type: live.TypeTournamentStatus, Payload: t})
	return t, nil
}

func (s *tournamentService) ListParticipants(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	if _, err := s.tournaments.GetTournamentByID(ctx, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	participants, err := s.participants.ListParticipantsByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %d: %w", tournamentID, err)
	}
	return participants, nil
}

func (s *tournamentService) UpdateParticipantStatus(ctx context.Context, actor Actor, tournamentID, userID int, status models.ParticipantStatus) (*models.Participant, error) {
	if !status.Valid() {
		return nil, fieldError("status", "must be active or disqualified")
	}
	t, err := s.tournaments.GetTournamentByID(ctx, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !actor.canManage(t) {
		return nil, ErrForbidden
	}
	p, err := s.participants.UpdateParticipantStatus(ctx, tournamentID, userID, status)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Participant status changed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("user_id", userID),
		slog.String("status", string(status)),
	)
	s.hub.BroadcastToRoom(live.TournamentRoom(tournamentID), live.Message{Type: live.TypeParticipantUpdated, Payload: p})
	return p, nil
}

// attachGame is best effort: a missing game only drops the nested object.
func (s *tournamentService) attachGame(ctx context.Context, t *models.Tournament) {
	game, err := s.games.GetGameByID(ctx, t.GameID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load tournament game", slog.Int("tournament_id", t.ID), slog.Any("error", err))
		return
	}
	t.Game = game
}
