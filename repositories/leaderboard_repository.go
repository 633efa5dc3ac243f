package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrLeaderboardEntryNotFound  = errors.New("leaderboard entry not found")
	ErrLeaderboardNegativePoints = errors.New("points cannot drop below zero")
	ErrLeaderboardPointsOverflow = errors.New("points exceed the supported range")
)

// MaxLeaderboardPoints is the capacity of the points column.
const MaxLeaderboardPoints = math.MaxInt32

type LeaderboardFilter struct {
	Country string
	// GameID keeps only players registered in at least one tournament of the game.
	GameID int
	Limit  int
}

type LeaderboardRepository interface {
	// GetLeaderboard returns entries ordered by rank ascending. Filters narrow
	// the list but ranks stay global.
	GetLeaderboard(ctx context.Context, filter LeaderboardFilter) ([]models.LeaderboardEntry, error)
	GetLeaderboardEntry(ctx context.Context, userID int) (*models.LeaderboardEntry, error)
	// AdjustPoints moves both the leaderboard row and the profile counter.
	AdjustPoints(ctx context.Context, userID, delta int) (*models.LeaderboardEntry, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

const leaderboardSelect = `
	SELECT l.user_id, u.username, u.country, l.points, l.wins, l.losses, l.rank, l.updated_at
	FROM leaderboard l
	JOIN users u ON u.id = l.user_id`

func scanLeaderboardEntry(row interface{ Scan(...interface{}) error }) (*models.LeaderboardEntry, error) {
	e := &models.LeaderboardEntry{}
	if err := row.Scan(&e.UserID, &e.Username, &e.Country, &e.Points, &e.Wins, &e.Losses, &e.Rank, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.FillDerived()
	return e, nil
}

func (r *postgresLeaderboardRepository) GetLeaderboard(ctx context.Context, filter LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	query := leaderboardSelect
	args := []interface{}{}
	conditions := []string{}
	argID := 1
	if filter.Country != "" && !strings.EqualFold(filter.Country, "all") {
		conditions = append(conditions, fmt.Sprintf("UPPER(u.country) = UPPER($%d)", argID))
		args = append(args, filter.Country)
		argID++
	}
	if filter.GameID > 0 {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM tournament_participants tp
			JOIN tournaments t ON t.id = tp.tournament_id
			WHERE tp.user_id = l.user_id AND t.game_id = $%d)`, argID))
		args = append(args, filter.GameID)
		argID++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY l.rank ASC, l.user_id ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0)
	for rows.Next() {
		e, err := scanLeaderboardEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during leaderboard rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresLeaderboardRepository) GetLeaderboardEntry(ctx context.Context, userID int) (*models.LeaderboardEntry, error) {
	e, err := scanLeaderboardEntry(r.db.QueryRowContext(ctx, leaderboardSelect+` WHERE l.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeaderboardEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresLeaderboardRepository) AdjustPoints(ctx context.Context, userID, delta int) (*models.LeaderboardEntry, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockLeaderboard(ctx, tx); err != nil {
			return err
		}
		var points int
		err := tx.QueryRowContext(ctx, `SELECT points FROM leaderboard WHERE user_id = $1 FOR UPDATE`, userID).Scan(&points)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrLeaderboardEntryNotFound
			}
			return fmt.Errorf("failed to lock leaderboard entry: %w", err)
		}
		if points+delta < 0 {
			return ErrLeaderboardNegativePoints
		}
		if points+delta > MaxLeaderboardPoints {
			return ErrLeaderboardPointsOverflow
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE leaderboard SET points = points + $1, updated_at = NOW() WHERE user_id = $2`, delta, userID,
		); err != nil {
			return fmt.Errorf("failed to adjust points: %w", err)
		}
		if err := ensureProfile(ctx, tx, userID, time.Now()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_profiles SET points = GREATEST(points + $1, 0), updated_at = NOW() WHERE user_id = $2`, delta, userID,
		); err != nil {
			return fmt.Errorf("failed to adjust profile points: %w", err)
		}
		return recomputeRanks(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return r.GetLeaderboardEntry(ctx, userID)
}
