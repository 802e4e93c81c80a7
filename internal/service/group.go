package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// MaxGroupTitleLength bounds Group.Title in characters.
const MaxGroupTitleLength = 200

var slugPattern = regexp.MustCompile(`^[-\p{L}\p{N}_]+$`)

// GroupService manages groups. Groups are created from the manage CLI;
// the web UI only reads them.
type GroupService struct {
	groups repository.GroupRepository
	logger *slog.Logger
}

func NewGroupService(groups repository.GroupRepository, logger *slog.Logger) *GroupService {
	return &GroupService{groups: groups, logger: logger}
}

// Create validates and stores a group. A taken slug is a Conflict.
func (s *GroupService) Create(ctx context.Context, title, slug, description string) (*model.Group, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)

	if title == "" {
		return nil, apperror.ValidationFailed("title", msgRequired)
	}
	if utf8.RuneCountInString(title) > MaxGroupTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("Ensure this value has at most %d characters.", MaxGroupTitleLength))
	}
	if !slugPattern.MatchString(slug) {
		return nil, apperror.ValidationFailed("slug",
			"Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}

	group := &model.Group{Title: title, Slug: slug, Description: strings.TrimSpace(description)}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("group created", slog.Int64("id", group.ID), slog.String("slug", slug))
	return group, nil
}

func (s *GroupService) GetBySlug(ctx context.Context, slug string) (*model.Group, error) {
	return s.groups.GetBySlug(ctx, slug)
}

// List returns every group, for the post form's group choices.
func (s *GroupService) List(ctx context.Context) ([]model.Group, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}
