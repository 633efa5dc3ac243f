package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/ranking"
	"github.com/lib/pq"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				txErr = fmt.Errorf("%w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()
	txErr = fn(tx)
	return txErr
}

func pqError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// lockLeaderboard serializes leaderboard writers: FOR UPDATE does not see rows
// inserted by concurrent transactions. Take it before the first leaderboard
// write in the transaction.
func lockLeaderboard(ctx context.Context, exec SQLExecutor) error {
	if _, err := exec.ExecContext(ctx, `LOCK TABLE leaderboard IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("failed to lock leaderboard: %w", err)
	}
	return nil
}

// recomputeRanks rewrites leaderboard.rank for every row whose rank changed.
// The caller must hold lockLeaderboard in the same transaction.
func recomputeRanks(ctx context.Context, exec SQLExecutor) error {
	rows, err := exec.QueryContext(ctx, `SELECT user_id, points, rank FROM leaderboard FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard for ranking: %w", err)
	}
	defer rows.Close()

	var standings []ranking.Standing
	current := make(map[int]int)
	for rows.Next() {
		var s ranking.Standing
		var rank int
		if err := rows.Scan(&s.UserID, &s.Points, &rank); err != nil {
			return fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		standings = append(standings, s)
		current[s.UserID] = rank
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during leaderboard rows iteration: %w", err)
	}
	rows.Close()

	for userID, rank := range ranking.Assign(standings) {
		if current[userID] == rank {
			continue
		}
		if _, err := exec.ExecContext(ctx, `UPDATE leaderboard SET rank = $1 WHERE user_id = $2`, rank, userID); err != nil {
			return fmt.Errorf("failed to update rank for user %d: %w", userID, err)
		}
	}
	return nil
}

// jsonColumn adapts a Go value to a JSONB column for both directions.
type jsonColumn struct {
	v interface{}
}

func (c jsonColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(c.v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c jsonColumn) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
	return json.Unmarshal(data, c.v)
}
