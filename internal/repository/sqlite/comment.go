package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.CommentRepository = (*CommentDB)(nil)

// CommentDB stores comments. There is no Update: comments are immutable.
type CommentDB struct {
	conn *sql.DB
}

// Create inserts a comment on comment.PostID by comment.Author.ID.
func (c *CommentDB) Create(ctx context.Context, comment *model.Comment) error {
	if comment.Created.IsZero() {
		comment.Created = time.Now().UTC()
	}

	res, err := c.conn.ExecContext(ctx,
		`INSERT INTO comments (post_id, author_id, text, created) VALUES (?, ?, ?, ?)`,
		comment.PostID, comment.Author.ID, comment.Text, comment.Created,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on post %d: %w", comment.PostID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading comment id: %w", err)
	}
	comment.ID = id
	return nil
}

// ListByPost returns every comment on a post, oldest first.
func (c *CommentDB) ListByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := c.conn.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.text, c.created, u.id, u.username
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ?
		 ORDER BY c.created, c.id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %d: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var cm model.Comment
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.Text, &cm.Created, &cm.Author.ID, &cm.Author.Username); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
