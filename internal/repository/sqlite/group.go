package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.GroupRepository = (*GroupDB)(nil)

// GroupDB stores groups in the post_groups table.
type GroupDB struct {
	conn *sql.DB
}

// Create inserts a group and sets group.ID. A duplicate slug is a Conflict.
func (g *GroupDB) Create(ctx context.Context, group *model.Group) error {
	res, err := g.conn.ExecContext(ctx,
		`INSERT INTO post_groups (title, slug, description) VALUES (?, ?, ?)`,
		group.Title, group.Slug, group.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("group", group.Slug)
		}
		return fmt.Errorf("sqlite: creating group %q: %w", group.Slug, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading group id: %w", err)
	}
	group.ID = id
	return nil
}

func (g *GroupDB) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	var group model.Group
	err := g.conn.QueryRowContext(ctx,
		`SELECT id, title, slug, description FROM post_groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.Title, &group.Slug, &group.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("group", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting group %d: %w", id, err)
	}
	return &group, nil
}

func (g *GroupDB) GetBySlug(ctx context.Context, slug string) (*model.Group, error) {
	var group model.Group
	err := g.conn.QueryRowContext(ctx,
		`SELECT id, title, slug, description FROM post_groups WHERE slug = ?`, slug,
	).Scan(&group.ID, &group.Title, &group.Slug, &group.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("group", slug)
		}
		return nil, fmt.Errorf("sqlite: getting group %q: %w", slug, err)
	}
	return &group, nil
}

// List returns every group ordered by title, for the post form's choices.
func (g *GroupDB) List(ctx context.Context) ([]model.Group, error) {
	rows, err := g.conn.QueryContext(ctx,
		`SELECT id, title, slug, description FROM post_groups ORDER BY title, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups: %w", err)
	}
	defer rows.Close()

	groups := []model.Group{}
	for rows.Next() {
		var group model.Group
		if err := rows.Scan(&group.ID, &group.Title, &group.Slug, &group.Description); err != nil {
			return nil, fmt.Errorf("sqlite: scanning group row: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating groups: %w", err)
	}
	return groups, nil
}
