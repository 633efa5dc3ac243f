package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantConflict    = errors.New("participant conflict: user already registered for this tournament")
	ErrParticipantUserInvalid = errors.New("participant user invalid")
)

type ParticipantRepository interface {
	// RegisterParticipant is the atomic registration unit: it re-checks existence,
	// uniqueness and capacity under lock, inserts the row, bumps the tournament
	// counter and records the join on the user's profile.
	RegisterParticipant(ctx context.Context, p *models.Participant) error
	ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error)
	IsUserRegistered(ctx context.Context, userID, tournamentID int) (bool, error)
	UpdateParticipantStatus(ctx context.Context, tournamentID, userID int, status models.ParticipantStatus) (*models.Participant, error)
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func lockTournament(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments t WHERE t.id = $1 FOR UPDATE`
	t, err := scanTournament(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to lock tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresParticipantRepository) RegisterParticipant(ctx context.Context, p *models.Participant) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		t, err := lockTournament(ctx, tx, p.TournamentID)
		if err != nil {
			return err
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2)`,
			p.TournamentID, p.UserID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if exists {
			return ErrParticipantConflict
		}
		if t.IsFull() {
			return ErrTournamentFull
		}

		p.Status = models.ParticipantActive
		query := `
			INSERT INTO tournament_participants (tournament_id, user_id, team_id, payment_intent_id, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, joined_at`
		err = tx.QueryRowContext(ctx, query, p.TournamentID, p.UserID, p.TeamID, p.PaymentIntentID, p.Status).
			Scan(&p.ID, &p.JoinedAt)
		if err != nil {
			return r.handleParticipantError(err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tournaments SET current_participants = current_participants + 1 WHERE id = $1`, t.ID,
		); err != nil {
			return fmt.Errorf("failed to increment participant count: %w", err)
		}

		profile, err := lockProfile(ctx, tx, p.UserID, p.JoinedAt)
		if err != nil {
			return err
		}
		profile.RecordTournamentJoined(t.Title, t.GameID, p.JoinedAt)
		return saveProfile(ctx, tx, profile)
	})
}

func (r *postgresParticipantRepository) ListParticipantsByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	query := `
		SELECT tp.id, tp.tournament_id, tp.user_id, tp.team_id, tp.payment_intent_id, tp.status, tp.joined_at,
		       u.username, u.display_name, u.avatar_url, u.country
		FROM tournament_participants tp
		JOIN users u ON u.id = tp.user_id
		WHERE tp.tournament_id = $1
		ORDER BY tp.joined_at ASC, tp.id ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		u := &models.User{}
		if err := rows.Scan(
			&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.PaymentIntentID, &p.Status, &p.JoinedAt,
			&u.Username, &u.DisplayName, &u.AvatarURL, &u.Country,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		u.ID = p.UserID
		p.User = u
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) IsUserRegistered(ctx context.Context, userID, tournamentID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2)`,
		tournamentID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}

func (r *postgresParticipantRepository) UpdateParticipantStatus(ctx context.Context, tournamentID, userID int, status models.ParticipantStatus) (*models.Participant, error) {
	var p models.Participant
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		t, err := lockTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		query := `
			SELECT id, tournament_id, user_id, team_id, payment_intent_id, status, joined_at
			FROM tournament_participants
			WHERE tournament_id = $1 AND user_id = $2
			FOR UPDATE`
		err = tx.QueryRowContext(ctx, query, tournamentID, userID).Scan(
			&p.ID, &p.TournamentID, &p.UserID, &p.TeamID, &p.PaymentIntentID, &p.Status, &p.JoinedAt,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrParticipantNotFound
			}
			return fmt.Errorf("failed to lock participant: %w", err)
		}
		if p.Status == status {
			return nil
		}

		delta := -1
		if status == models.ParticipantActive {
			if t.IsFull() {
				return ErrTournamentFull
			}
			delta = 1
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tournament_participants SET status = $1 WHERE id = $2`, status, p.ID); err != nil {
			return fmt.Errorf("failed to update participant status: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tournaments SET current_participants = current_participants + $1 WHERE id = $2`, delta, t.ID,
		); err != nil {
			return fmt.Errorf("failed to update participant count: %w", err)
		}
		p.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresParticipantRepository) handleParticipantError(err error) error {
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournament_participants_tournament_id_user_id_key" {
				return ErrParticipantConflict
			}
		case "23503":
			if pqErr.Constraint == "tournament_participants_user_id_fkey" {
				return ErrParticipantUserInvalid
			}
		}
	}
	return err
}
