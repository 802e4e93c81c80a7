package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB stores posts. Reads always JOIN the author and LEFT JOIN the
// group so a model.Post comes back fully populated in one query.
type PostDB struct {
	conn *sql.DB
}

const postSelect = `
	SELECT p.id, p.text, p.pub_date, p.image,
	       u.id, u.username,
	       g.id, g.title, g.slug, g.description
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN post_groups g ON g.id = p.group_id`

// Newest first. Posts created within the same clock tick keep insertion
// order through the id tie-breaker.
const postOrder = ` ORDER BY p.pub_date DESC, p.id DESC`

// Create inserts a post written by post.Author.ID. PubDate is set to now
// unless the caller already filled it in; ID is set from the new row.
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	if post.PubDate.IsZero() {
		post.PubDate = time.Now().UTC()
	}

	res, err := p.conn.ExecContext(ctx,
		`INSERT INTO posts (text, pub_date, author_id, group_id, image)
		 VALUES (?, ?, ?, ?, ?)`,
		post.Text,
		post.PubDate,
		post.Author.ID,
		nullableGroupID(post.Group),
		post.Image,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetByID retrieves a single post with its author and group.
func (p *PostDB) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	post, err := scanPost(p.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}
	return post, nil
}

// List returns one page of posts matching filter, newest first.
//
// Unlike the listing defaults elsewhere, a zero Limit is NOT replaced by a
// default page size: the caller (the service's paginator) always passes
// the exact page size it wants.
func (p *PostDB) List(ctx context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	where, args := postWhere(filter)

	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if opts.Offset < 0 {
		return []model.Post{}, nil
	}
	args = append(args, limit, opts.Offset)

	rows, err := p.conn.QueryContext(ctx, postSelect+where+postOrder+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, max(opts.Limit, 0))
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// Count returns how many posts match filter.
func (p *PostDB) Count(ctx context.Context, filter repository.PostFilter) (int, error) {
	where, args := postWhere(filter)

	var n int
	if err := p.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// Update saves text, group and image. Author and pub_date never change.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?`,
		post.Text,
		nullableGroupID(post.Group),
		post.Image,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %d: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", strconv.FormatInt(post.ID, 10))
	}
	return nil
}

// Delete removes a post; its comments go with it (ON DELETE CASCADE).
func (p *PostDB) Delete(ctx context.Context, id int64) error {
	result, err := p.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	return nil
}

// postWhere builds the WHERE clause for a filter. Only fixed SQL fragments
// are concatenated; every value goes through a ? placeholder.
func postWhere(filter repository.PostFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.GroupID != 0 {
		clauses = append(clauses, `p.group_id = ?`)
		args = append(args, filter.GroupID)
	}
	if filter.AuthorID != "" {
		clauses = append(clauses, `p.author_id = ?`)
		args = append(args, filter.AuthorID)
	}
	if filter.FollowerID != "" {
		clauses = append(clauses, `p.author_id IN (SELECT author_id FROM follows WHERE user_id = ?)`)
		args = append(args, filter.FollowerID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		post       model.Post
		groupID    sql.NullInt64
		groupTitle sql.NullString
		groupSlug  sql.NullString
		groupDesc  sql.NullString
	)
	err := row.Scan(
		&post.ID, &post.Text, &post.PubDate, &post.Image,
		&post.Author.ID, &post.Author.Username,
		&groupID, &groupTitle, &groupSlug, &groupDesc,
	)
	if err != nil {
		return nil, err
	}
	if groupID.Valid {
		post.Group = &model.Group{
			ID:          groupID.Int64,
			Title:       groupTitle.String,
			Slug:        groupSlug.String,
			Description: groupDesc.String,
		}
	}
	return &post, nil
}

func nullableGroupID(g *model.Group) sql.NullInt64 {
	if g == nil || g.ID == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: g.ID, Valid: true}
}
