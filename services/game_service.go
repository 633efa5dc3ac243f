package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/Dosada05/esports-platform/storage"
	"github.com/gosimple/slug"
)

type GameService interface {
	ListGames(ctx context.Context, genre string, sort models.GameSort) ([]models.Game, error)
	ListGameNames(ctx context.Context) ([]models.GameListItem, error)
	ListGenres(ctx context.Context) ([]GenreOption, error)
	GetGame(ctx context.Context, id int) (*models.Game, error)
	CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error)
	UploadGameImage(ctx context.Context, id int, contentType string, file io.Reader) (*models.Game, error)
}

type CreateGameInput struct {
	Name        string  `json:"name"`
	Genre       string  `json:"genre"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	IconURL     *string `json:"icon_url"`
}

func (in CreateGameInput) validate() error {
	errs := fieldErrors{}
	if in.Name == "" {
		errs.add("name", "is required")
	} else if utf8.RuneCountInString(in.Name) > 100 {
		errs.add("name", "must be at most 100 characters")
	}
	switch {
	case in.Genre == "":
		errs.add("genre", "is required")
	case strings.EqualFold(in.Genre, "all"):
		errs.add("genre", "is reserved")
	case utf8.RuneCountInString(in.Genre) > 50:
		errs.add("genre", "must be at most 50 characters")
	}
	return errs.err()
}

type gameService struct {
	games    repositories.GameRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewGameService(games repositories.GameRepository, uploader storage.FileUploader, logger *slog.Logger) GameService {
	return &gameService{games: games, uploader: uploader, logger: orDiscardLogger(logger)}
}

func (s *gameService) ListGames(ctx context.Context, genre string, sort models.GameSort) ([]models.Game, error) {
	if !sort.Valid() {
		return nil, fieldError("sort", "must be one of newest, popular, tournaments, prizepool")
	}
	games, err := s.games.ListGames(ctx, repositories.ListGamesFilter{Genre: strings.TrimSpace(genre), Sort: sort})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *gameService) ListGameNames(ctx context.Context) ([]models.GameListItem, error) {
	games, err := s.games.ListGames(ctx, repositories.ListGamesFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	items := make([]models.GameListItem, len(games))
	for i, g := range games {
		items[i] = models.GameListItem{ID: g.ID, Name: g.Name}
	}
	return items, nil
}

func (s *gameService) ListGenres(ctx context.Context) ([]GenreOption, error) {
	genres, err := s.games.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	options := make([]GenreOption, len(genres))
	for i, genre := range genres {
		options[i] = GenreOption{ID: genre, Name: genreDisplayName(genre)}
	}
	return options, nil
}

func (s *gameService) GetGame(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.games.GetGameByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return game, nil
}

func (s *gameService) CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Genre = strings.ToLower(strings.TrimSpace(input.Genre))
	if err := input.validate(); err != nil {
		return nil, err
	}

	game := &models.Game{
		Name:        input.Name,
		Slug:        slug.Make(input.Name),
		Genre:       input.Genre,
		Description: trimmedPtr(input.Description),
		ImageURL:    input.ImageURL,
		IconURL:     input.IconURL,
		Active:      true,
	}
	if err := s.games.CreateGame(ctx, game); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Game created", slog.Int("game_id", game.ID), slog.String("name", game.Name))
	return game, nil
}

func (s *gameService) UploadGameImage(ctx context.Context, id int, contentType string, file io.Reader) (*models.Game, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fieldError("image", err.Error())
	}
	if _, err := s.games.GetGameByID(ctx, id); err != nil {
		return nil, handleRepositoryError(err)
	}

	key := storage.ObjectKey("games", "", ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image for game %d: %w", id, err)
	}
	if err := s.games.UpdateGameImage(ctx, id, result.Location); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.GetGame(ctx, id)
}
