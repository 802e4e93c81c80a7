package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// CommentService adds and lists comments. Comments are never edited.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{comments: comments, posts: posts, users: users, logger: logger}
}

// Add stores a comment by authorID on postID. A missing post is NotFound;
// blank text is a validation error on "text".
func (s *CommentService) Add(ctx context.Context, authorID string, postID int64, text string) (*model.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", msgRequired)
	}

	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("loading comment author %s: %w", authorID, err)
	}

	comment := &model.Comment{PostID: postID, Author: *author, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.Int64("post", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment added",
		slog.Int64("post", postID),
		slog.String("author", author.Username),
	)
	return comment, nil
}

// ListForPost returns every comment on postID, oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("listing comments for post %d: %w", postID, err)
	}
	return comments, nil
}
