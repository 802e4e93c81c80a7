package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// FollowService manages follow edges between users.
//
// Follow and Unfollow are idempotent from the caller's point of view:
// following yourself, following twice and unfollowing someone you do not
// follow all succeed without changing anything.
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	logger  *slog.Logger
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, logger *slog.Logger) *FollowService {
	return &FollowService{follows: follows, users: users, logger: logger}
}

// Follow makes userID follow the user named authorUsername and returns
// that author. An unknown username is NotFound.
func (s *FollowService) Follow(ctx context.Context, userID, authorUsername string) (*model.User, error) {
	author, err := s.users.GetByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return author, nil
	}

	err = s.follows.Create(ctx, &model.Follow{UserID: userID, AuthorID: author.ID})
	switch {
	case err == nil:
		s.logger.Info("follow created",
			slog.String("user", userID),
			slog.String("author", author.Username),
		)
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrForbidden):
		// already following, or a self-follow the store refused
	default:
		return nil, fmt.Errorf("following %s: %w", author.Username, err)
	}
	return author, nil
}

// Unfollow removes the edge userID -> authorUsername if it exists.
func (s *FollowService) Unfollow(ctx context.Context, userID, authorUsername string) (*model.User, error) {
	author, err := s.users.GetByUsername(ctx, authorUsername)
	if err != nil {
		return nil, err
	}

	err = s.follows.Delete(ctx, userID, author.ID)
	switch {
	case err == nil:
		s.logger.Info("follow removed",
			slog.String("user", userID),
			slog.String("author", author.Username),
		)
	case errors.Is(err, apperror.ErrNotFound):
	default:
		return nil, fmt.Errorf("unfollowing %s: %w", author.Username, err)
	}
	return author, nil
}

// IsFollowing reports whether userID follows authorID. Anonymous viewers
// (empty userID) follow nobody.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	if userID == "" || userID == authorID {
		return false, nil
	}
	ok, err := s.follows.Exists(ctx, userID, authorID)
	if err != nil {
		return false, fmt.Errorf("checking follow: %w", err)
	}
	return ok, nil
}
