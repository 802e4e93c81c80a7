package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.FollowRepository = (*FollowDB)(nil)

// FollowDB stores follow edges. The table's UNIQUE(user_id, author_id) and
// CHECK(user_id <> author_id) constraints back up the service-level rules.
type FollowDB struct {
	conn *sql.DB
}

// Create inserts a follow edge. An existing pair is a Conflict and a
// self-follow is a Forbidden error.
func (f *FollowDB) Create(ctx context.Context, follow *model.Follow) error {
	follow.CreatedAt = time.Now().UTC()

	res, err := f.conn.ExecContext(ctx,
		`INSERT INTO follows (user_id, author_id, created_at) VALUES (?, ?, ?)`,
		follow.UserID, follow.AuthorID, follow.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Conflict("follow", follow.UserID+"->"+follow.AuthorID)
		case isCheckViolation(err):
			return apperror.Forbidden("users cannot follow themselves")
		}
		return fmt.Errorf("sqlite: creating follow %s->%s: %w", follow.UserID, follow.AuthorID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading follow id: %w", err)
	}
	follow.ID = id
	return nil
}

// Delete removes the edge userID -> authorID.
func (f *FollowDB) Delete(ctx context.Context, userID, authorID string) error {
	result, err := f.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s->%s: %w", userID, authorID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("follow", userID+"->"+authorID)
	}
	return nil
}

// Exists reports whether userID follows authorID.
func (f *FollowDB) Exists(ctx context.Context, userID, authorID string) (bool, error) {
	var exists bool
	err := f.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE user_id = ? AND author_id = ?)`,
		userID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow %s->%s: %w", userID, authorID, err)
	}
	return exists, nil
}
