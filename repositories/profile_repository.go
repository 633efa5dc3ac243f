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
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileGameInvalid = errors.New("invalid main game reference")
)

type ProfileRepository interface {
	GetOrCreateProfile(ctx context.Context, userID int) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int, upd models.ProfileUpdate) (*models.UserProfile, error)
}

type postgresProfileRepository struct {
	db *sql.DB
}

func NewPostgresProfileRepository(db *sql.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

const profileColumns = `
	p.user_id, p.display_name, p.bio, p.avatar, p.country, p.main_game_id,
	p.total_tournaments, p.total_matches, p.wins, p.points,
	p.game_stats, p.achievements, p.recent_activity, p.updated_at, l.rank`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.UserProfile, error) {
	p := models.NewUserProfile(0, time.Time{})
	var rank sql.NullInt64
	err := row.Scan(
		&p.UserID, &p.DisplayName, &p.Bio, &p.Avatar, &p.Country, &p.MainGameID,
		&p.TotalTournaments, &p.TotalMatches, &p.Wins, &p.Points,
		jsonColumn{&p.GameStats}, jsonColumn{&p.Achievements}, jsonColumn{&p.RecentActivity}, &p.UpdatedAt, &rank,
	)
	if err != nil {
		return nil, err
	}
	if rank.Valid {
		r := int(rank.Int64)
		p.Rank = &r
	}
	return p, nil
}

// lockProfile returns the user's profile row locked for update, creating it first if needed.
func lockProfile(ctx context.Context, exec SQLExecutor, userID int, at time.Time) (*models.UserProfile, error) {
	if err := ensureProfile(ctx, exec, userID, at); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + profileColumns + `
		FROM user_profiles p
		LEFT JOIN leaderboard l ON l.user_id = p.user_id
		WHERE p.user_id = $1
		FOR UPDATE OF p`
	p, err := scanProfile(exec.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock profile for user %d: %w", userID, err)
	}
	return p, nil
}

func ensureProfile(ctx context.Context, exec SQLExecutor, userID int, at time.Time) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, updated_at) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, at,
	)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create profile for user %d: %w", userID, err)
	}
	return nil
}

func saveProfile(ctx context.Context, exec SQLExecutor, p *models.UserProfile) error {
	query := `
		UPDATE user_profiles SET
			display_name = $1,
			bio = $2,
			avatar = $3,
			country = $4,
			main_game_id = $5,
			total_tournaments = $6,
			total_matches = $7,
			wins = $8,
			points = $9,
			game_stats = $10,
			achievements = $11,
			recent_activity = $12,
			updated_at = $13
		WHERE user_id = $14`
	result, err := exec.ExecContext(ctx, query,
		p.DisplayName, p.Bio, p.Avatar, p.Country, p.MainGameID,
		p.TotalTournaments, p.TotalMatches, p.Wins, p.Points,
		jsonColumn{p.GameStats}, jsonColumn{p.Achievements}, jsonColumn{p.RecentActivity},
		p.UpdatedAt, p.UserID,
	)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == "23503" && pqErr.Constraint == "user_profiles_main_game_id_fkey" {
			return ErrProfileGameInvalid
		}
		return fmt.Errorf("failed to save profile for user %d: %w", p.UserID, err)
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func (r *postgresProfileRepository) GetOrCreateProfile(ctx context.Context, userID int) (*models.UserProfile, error) {
	if err := ensureProfile(ctx, r.db, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + profileColumns + `
		FROM user_profiles p
		LEFT JOIN leaderboard l ON l.user_id = p.user_id
		WHERE p.user_id = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresProfileRepository) UpdateProfile(ctx context.Context, userID int, upd models.ProfileUpdate) (*models.UserProfile, error) {
	var profile *models.UserProfile
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		p, err := lockProfile(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		p.Apply(upd, now)
		if err := saveProfile(ctx, tx, p); err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
