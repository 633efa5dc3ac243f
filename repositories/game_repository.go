package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrGameNameConflict = errors.New("game name conflict")
)

type ListGamesFilter struct {
	Genre string
	Sort  models.GameSort
}

// NoGenreFilter reports whether the genre value disables filtering.
func (f ListGamesFilter) NoGenreFilter() bool {
	return f.Genre == "" || strings.EqualFold(f.Genre, "all")
}

type GameRepository interface {
	CreateGame(ctx context.Context, game *models.Game) error
	GetGameByID(ctx context.Context, id int) (*models.Game, error)
	ListGames(ctx context.Context, filter ListGamesFilter) ([]models.Game, error)
	ListGenres(ctx context.Context) ([]string, error)
	UpdateGameImage(ctx context.Context, id int, imageURL string) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

const gameSelect = `
	SELECT
		g.id, g.name, g.slug, g.description, g.image_url, g.icon_url, g.genre, g.active, g.created_at,
		COALESCE(ap.active_players, 0),
		COALESCE(ts.tournament_count, 0),
		COALESCE(ts.total_prize_pool, 0)
	FROM games g
	LEFT JOIN (
		SELECT game_id, COUNT(*) AS tournament_count, SUM(prize_pool)::BIGINT AS total_prize_pool
		FROM tournaments
		GROUP BY game_id
	) ts ON ts.game_id = g.id
	LEFT JOIN (
		SELECT t.game_id, COUNT(DISTINCT tp.user_id) AS active_players
		FROM tournament_participants tp
		JOIN tournaments t ON t.id = tp.tournament_id
		WHERE tp.status = 'active'
		GROUP BY t.game_id
	) ap ON ap.game_id = g.id`

func scanGame(row interface{ Scan(...interface{}) error }) (*models.Game, error) {
	g := &models.Game{}
	err := row.Scan(
		&g.ID, &g.Name, &g.Slug, &g.Description, &g.ImageURL, &g.IconURL, &g.Genre, &g.Active, &g.CreatedAt,
		&g.ActivePlayers, &g.TournamentCount, &g.TotalPrizePool,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *postgresGameRepository) CreateGame(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (name, slug, description, image_url, icon_url, genre, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		game.Name, game.Slug, game.Description, game.ImageURL, game.IconURL, game.Genre, game.Active,
	).Scan(&game.ID, &game.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23505" {
			return ErrGameNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresGameRepository) GetGameByID(ctx context.Context, id int) (*models.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx, gameSelect+` WHERE g.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *postgresGameRepository) ListGames(ctx context.Context, filter ListGamesFilter) ([]models.Game, error) {
	query := gameSelect
	args := []interface{}{}
	if !filter.NoGenreFilter() {
		query += ` WHERE LOWER(g.genre) = LOWER($1)`
		args = append(args, filter.Genre)
	}

	switch filter.Sort {
	case models.GameSortNewest:
		query += ` ORDER BY g.created_at DESC, g.id DESC`
	case models.GameSortPopular:
		query += ` ORDER BY 10 DESC, g.id ASC`
	case models.GameSortTournaments:
		query += ` ORDER BY 11 DESC, g.id ASC`
	case models.GameSortPrizePool:
		query += ` ORDER BY 12 DESC, g.id ASC`
	default:
		query += ` ORDER BY g.id ASC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during game rows iteration: %w", err)
	}
	return games, nil
}

func (r *postgresGameRepository) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT LOWER(genre) FROM games ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	genres := make([]string, 0)
	for rows.Next() {
		var genre string
		if err := rows.Scan(&genre); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

func (r *postgresGameRepository) UpdateGameImage(ctx context.Context, id int, imageURL string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE games SET image_url = $1 WHERE id = $2`, imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to update game image: %w", err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}
