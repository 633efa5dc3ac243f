package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("invalid tournament reference")
	ErrMatchPlayerInvalid     = errors.New("invalid player reference")
	ErrMatchAlreadyCompleted  = errors.New("match result already recorded")
	ErrMatchWinnerInvalid     = errors.New("winner must be one of the match players")
	ErrMatchStatusConflict    = errors.New("match is not in the expected status")
)

type MatchRepository interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	GetMatchByID(ctx context.Context, id int) (*models.Match, error)
	ListMatchesByTournament(ctx context.Context, tournamentID int) ([]models.Match, error)
	// ListMatchesByUser returns the user's match history, newest first.
	ListMatchesByUser(ctx context.Context, userID int) ([]models.Match, error)
	StartMatch(ctx context.Context, id int, at time.Time) (*models.Match, error)
	// ApplyMatchResult records the result, credits the winner, counts the loss
	// and recomputes ranks as one unit. A match accepts exactly one result.
	ApplyMatchResult(ctx context.Context, result models.MatchResult) (*models.Match, error)
	CountMatches(ctx context.Context) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, round, match_number, player1_id, player2_id, player1_score, player2_score,
	score, winner_id, loser_id, status, scheduled_at, started_at, ended_at, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.Player1ID, &m.Player2ID, &m.Player1Score, &m.Player2Score,
		&m.Score, &m.WinnerID, &m.LoserID, &m.Status, &m.ScheduledAt, &m.StartedAt, &m.EndedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) listMatches(ctx context.Context, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CreateMatch(ctx context.Context, m *models.Match) error {
	m.Status = models.MatchScheduled
	query := `
		INSERT INTO matches (tournament_id, round, match_number, player1_id, player2_id, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		m.TournamentID, m.Round, m.MatchNumber, m.Player1ID, m.Player2ID, m.Status, m.ScheduledAt,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "matches_tournament_id_fkey" {
				return ErrMatchTournamentInvalid
			}
			return ErrMatchPlayerInvalid
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) GetMatchByID(ctx context.Context, id int) (*models.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListMatchesByTournament(ctx context.Context, tournamentID int) ([]models.Match, error) {
	return r.listMatches(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE tournament_id = $1 ORDER BY round ASC, match_number ASC, id ASC`,
		tournamentID)
}

func (r *postgresMatchRepository) ListMatchesByUser(ctx context.Context, userID int) ([]models.Match, error) {
	return r.listMatches(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE player1_id = $1 OR player2_id = $1 ORDER BY created_at DESC, id DESC`,
		userID)
}

func (r *postgresMatchRepository) StartMatch(ctx context.Context, id int, at time.Time) (*models.Match, error) {
	var match *models.Match
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := scanMatch(tx.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match %d: %w", id, err)
		}
		if m.Status != models.MatchScheduled {
			return ErrMatchStatusConflict
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE matches SET status = $1, started_at = $2 WHERE id = $3`, models.MatchLive, at, id,
		); err != nil {
			return fmt.Errorf("failed to start match %d: %w", id, err)
		}
		m.Status = models.MatchLive
		m.StartedAt = &at
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ApplyMatchResult(ctx context.Context, res models.MatchResult) (*models.Match, error) {
	var match *models.Match
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		m, err := scanMatch(tx.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, res.MatchID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to lock match %d: %w", res.MatchID, err)
		}
		if m.WinnerID != nil || m.Status == models.MatchCompleted {
			return ErrMatchAlreadyCompleted
		}
		if !m.HasPlayer(res.WinnerID) {
			return ErrMatchWinnerInvalid
		}
		loserID := m.Opponent(res.WinnerID)
		if err := lockLeaderboard(ctx, tx); err != nil {
			return err
		}

		query := `
			UPDATE matches SET
				winner_id = $1, loser_id = $2, player1_score = $3, player2_score = $4,
				score = $5, status = $6, ended_at = $7
			WHERE id = $8`
		if _, err := tx.ExecContext(ctx, query,
			res.WinnerID, loserID, res.Player1Score, res.Player2Score, res.Score, models.MatchCompleted, res.At, m.ID,
		); err != nil {
			return fmt.Errorf("failed to record result for match %d: %w", m.ID, err)
		}

		standings := `
			INSERT INTO leaderboard (user_id, points, wins, losses, rank, updated_at)
			VALUES ($1, $2, $3, $4, 0, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				points = leaderboard.points + EXCLUDED.points,
				wins = leaderboard.wins + EXCLUDED.wins,
				losses = leaderboard.losses + EXCLUDED.losses,
				updated_at = EXCLUDED.updated_at`
		if _, err := tx.ExecContext(ctx, standings, res.WinnerID, models.WinPoints, 1, 0, res.At); err != nil {
			return fmt.Errorf("failed to credit winner %d: %w", res.WinnerID, err)
		}
		if _, err := tx.ExecContext(ctx, standings, loserID, 0, 0, 1, res.At); err != nil {
			return fmt.Errorf("failed to record loss for %d: %w", loserID, err)
		}
		if err := recomputeRanks(ctx, tx); err != nil {
			return err
		}

		var title string
		var gameID int
		if err := tx.QueryRowContext(ctx, `SELECT title, game_id FROM tournaments WHERE id = $1`, m.TournamentID).
			Scan(&title, &gameID); err != nil {
			return fmt.Errorf("failed to load tournament %d: %w", m.TournamentID, err)
		}
		for _, side := range []struct {
			userID int
			won    bool
		}{{res.WinnerID, true}, {loserID, false}} {
			profile, err := lockProfile(ctx, tx, side.userID, res.At)
			if err != nil {
				return err
			}
			profile.RecordMatch(title, gameID, side.won, res.At)
			if err := saveProfile(ctx, tx, profile); err != nil {
				return err
			}
		}

		m.WinnerID = &res.WinnerID
		m.LoserID = &loserID
		m.Player1Score = res.Player1Score
		m.Player2Score = res.Player2Score
		m.Score = res.Score
		m.Status = models.MatchCompleted
		endedAt := res.At
		m.EndedAt = &endedAt
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) CountMatches(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}
