package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrTournamentGameInvalid = errors.New("invalid game reference")
	ErrTournamentFull        = errors.New("tournament is full")
)

type ListTournamentsFilter struct {
	GameID *int
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	CreateTournament(ctx context.Context, tournament *models.Tournament) error
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// ListTournamentsByUser returns the tournaments the user holds a participant row in.
	ListTournamentsByUser(ctx context.Context, userID int) ([]models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) error
	CountTournaments(ctx context.Context, status *models.TournamentStatus) (int, error)
	// ReconcileParticipantCounts rewrites counters that drifted from the number
	// of active participant rows and returns how many tournaments were fixed.
	ReconcileParticipantCounts(ctx context.Context) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	t.id, t.game_id, t.title, t.slug, t.description, t.image_url, t.prize_pool, t.entry_fee, t.currency,
	t.team_size, t.max_participants, t.current_participants, t.region, t.format, t.rules,
	t.start_date, t.end_date, t.status, t.created_by, t.created_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.GameID, &t.Title, &t.Slug, &t.Description, &t.ImageURL, &t.PrizePool, &t.EntryFee, &t.Currency,
		&t.TeamSize, &t.MaxParticipants, &t.CurrentParticipants, &t.Region, &t.Format, &t.Rules,
		&t.StartDate, &t.EndDate, &t.Status, &t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTournaments(rows *sql.Rows) ([]models.Tournament, error) {
	defer rows.Close()
	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) CreateTournament(ctx context.Context, t *models.Tournament) error {
	t.Status = models.StatusUpcoming
	t.CurrentParticipants = 0
	query := `
		INSERT INTO tournaments (
			game_id, title, slug, description, image_url, prize_pool, entry_fee, currency,
			team_size, max_participants, current_participants, region, format, rules,
			start_date, end_date, status, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.GameID, t.Title, t.Slug, t.Description, t.ImageURL, t.PrizePool, t.EntryFee, t.Currency,
		t.TeamSize, t.MaxParticipants, t.Region, t.Format, t.Rules,
		t.StartDate, t.EndDate, t.Status, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.id = $1`
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.GameID != nil {
		query += fmt.Sprintf(" AND t.game_id = $%d", argID)
		args = append(args, *filter.GameID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY t.start_date ASC, t.id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return scanTournaments(rows)
}

func (r *postgresTournamentRepository) ListTournamentsByUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments t
		JOIN tournament_participants tp ON tp.tournament_id = t.id
		WHERE tp.user_id = $1
		ORDER BY t.start_date ASC, t.id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments for user %d: %w", userID, err)
	}
	return scanTournaments(rows)
}

func (r *postgresTournamentRepository) UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) CountTournaments(ctx context.Context, status *models.TournamentStatus) (int, error) {
	query := `SELECT COUNT(*) FROM tournaments`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tournaments: %w", err)
	}
	return n, nil
}

func (r *postgresTournamentRepository) ReconcileParticipantCounts(ctx context.Context) (int, error) {
	var fixed int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// Registrations hold the tournament row lock until commit. Once every
		// row is ours, the next statement's snapshot sees all of them.
		rows, err := tx.QueryContext(ctx, `SELECT id FROM tournaments ORDER BY id FOR UPDATE`)
		if err != nil {
			return fmt.Errorf("failed to lock tournaments: %w", err)
		}
		locked := 0
		for rows.Next() {
			locked++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to lock tournaments: %w", err)
		}
		if locked == 0 {
			return nil
		}

		query := `
			UPDATE tournaments t
			SET current_participants = c.active
			FROM (
				SELECT t2.id, COUNT(tp.id) FILTER (WHERE tp.status = 'active') AS active
				FROM tournaments t2
				LEFT JOIN tournament_participants tp ON tp.tournament_id = t2.id
				GROUP BY t2.id
			) c
			WHERE t.id = c.id AND t.current_participants <> c.active`
		result, err := tx.ExecContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to reconcile participant counts: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		}
		fixed = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case "23503":
			switch pqErr.Constraint {
			case "tournaments_game_id_fkey":
				return ErrTournamentGameInvalid
			case "tournaments_created_by_fkey":
				return ErrUserNotFound
			}
		case "23514":
			if pqErr.Constraint == "tournaments_capacity_check" {
				return ErrTournamentFull
			}
		}
	}
	return err
}
