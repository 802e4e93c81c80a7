// Package repository declares the storage interfaces the service layer
// depends on. The SQLite implementation lives in repository/sqlite; service
// tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/yatube/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// PostFilter narrows a post listing. Zero values mean "no constraint", so
// PostFilter{} selects every post.
type PostFilter struct {
	GroupID    int64  // posts in this group
	AuthorID   string // posts written by this user
	FollowerID string // posts by authors this user follows
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id int64) (*model.Group, error)
	GetBySlug(ctx context.Context, slug string) (*model.Group, error)
	List(ctx context.Context) ([]model.Group, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id int64) (*model.Post, error)
	List(ctx context.Context, filter PostFilter, opts ListOptions) ([]model.Post, error)
	Count(ctx context.Context, filter PostFilter) (int, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id int64) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByPost(ctx context.Context, postID int64) ([]model.Comment, error)
}

// FollowRepository stores follow edges. Create returns an apperror.Conflict
// for an existing pair; Delete returns apperror.NotFound when there is
// nothing to remove.
type FollowRepository interface {
	Create(ctx context.Context, follow *model.Follow) error
	Delete(ctx context.Context, userID, authorID string) error
	Exists(ctx context.Context, userID, authorID string) (bool, error)
}
