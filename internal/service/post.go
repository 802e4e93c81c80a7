// Package service contains the business rules of the blog.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)     → parses forms, renders templates, redirects
//	Service (business) → validates input, checks ownership, paginates
//	Repository (data)  → reads and writes SQLite
//
// Services accept plain values (never *http.Request) and return
// apperror values, so the same rules serve the HTML views, the JSON API
// and the manage CLI. Dependencies are repository interfaces; tests pass
// in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/pagination"
	"github.com/sakif/yatube/internal/repository"
)

// Field error messages shared by the post and comment forms.
const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

// ImageStore persists uploaded images and returns their media-relative
// path. media.Store implements it.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, rel string)
}

// Upload is an image file submitted with a post form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// PostInput is what the create and edit forms submit. GroupID 0 means
// "no group"; a nil Image leaves the current image alone.
type PostInput struct {
	Text    string
	GroupID int64
	Image   *Upload
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts []model.Post
	Page  pagination.Page
}

// PostService implements the post listings and the post lifecycle.
type PostService struct {
	posts  repository.PostRepository
	groups repository.GroupRepository
	users  repository.UserRepository
	images ImageStore
	logger *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	images ImageStore,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:  posts,
		groups: groups,
		users:  users,
		images: images,
		logger: logger,
	}
}

// Index returns page number of all posts.
func (s *PostService) Index(ctx context.Context, number int) (*PostPage, error) {
	return s.page(ctx, repository.PostFilter{}, number)
}

// GroupPosts returns the group with the given slug and one page of its
// posts. An unknown slug is NotFound.
func (s *PostService) GroupPosts(ctx context.Context, slug string, number int) (*model.Group, *PostPage, error) {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, number)
	if err != nil {
		return nil, nil, err
	}
	return group, page, nil
}

// ProfilePosts returns the author with the given username and one page of
// their posts. page.Page.Total is the author's post count.
func (s *PostService) ProfilePosts(ctx context.Context, username string, number int) (*model.User, *PostPage, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, number)
	if err != nil {
		return nil, nil, err
	}
	return author, page, nil
}

// Feed returns one page of posts by the authors userID follows.
func (s *PostService) Feed(ctx context.Context, userID string, number int) (*PostPage, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	return s.page(ctx, repository.PostFilter{FollowerID: userID}, number)
}

// Get returns a single post. A missing post is NotFound.
func (s *PostService) Get(ctx context.Context, id int64) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// CountByAuthor returns how many posts authorID has written.
func (s *PostService) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	n, err := s.posts.Count(ctx, repository.PostFilter{AuthorID: authorID})
	if err != nil {
		return 0, fmt.Errorf("counting posts by %s: %w", authorID, err)
	}
	return n, nil
}

// Create validates in and saves a new post by authorID.
//
// Text and group are checked before the image is written, so a rejected
// form never leaves a file behind.
func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("loading author %s: %w", authorID, err)
	}

	text, group, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	post := &model.Post{Text: text, Author: *author, Group: group}
	if in.Image != nil {
		if post.Image, err = s.images.Save(ctx, in.Image.Filename, in.Image.Content); err != nil {
			return nil, err
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if post.Image != "" {
			s.images.Remove(ctx, post.Image)
		}
		s.logger.Error("failed to create post",
			slog.String("author", author.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("id", post.ID),
		slog.String("author", author.Username),
	)
	return post, nil
}

// Update applies in to post id. Only the author may edit; anyone else gets
// apperror.ErrForbidden and nothing changes.
func (s *PostService) Update(ctx context.Context, userID string, id int64, in PostInput) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author.ID != userID {
		return nil, apperror.Forbidden("only the author can edit this post")
	}

	text, group, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	post.Text = text
	post.Group = group
	var saved string
	if in.Image != nil {
		if saved, err = s.images.Save(ctx, in.Image.Filename, in.Image.Content); err != nil {
			return nil, err
		}
		post.Image = saved
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if saved != "" {
			s.images.Remove(ctx, saved)
		}
		s.logger.Error("failed to update post",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post %d: %w", id, err)
	}

	s.logger.Info("post updated", slog.Int64("id", id))
	return post, nil
}

// Delete removes post id if userID wrote it. The deleted post is returned
// so callers can redirect to the author's profile.
func (s *PostService) Delete(ctx context.Context, userID string, id int64) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Author.ID != userID {
		return nil, apperror.Forbidden("only the author can delete this post")
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("post deleted",
		slog.Int64("id", id),
		slog.String("author", post.Author.Username),
	)
	return post, nil
}

// validate checks text and group. A whitespace-only text counts as empty;
// non-blank text is stored as submitted.
func (s *PostService) validate(ctx context.Context, in PostInput) (string, *model.Group, error) {
	if strings.TrimSpace(in.Text) == "" {
		return "", nil, apperror.ValidationFailed("text", msgRequired)
	}
	if in.GroupID == 0 {
		return in.Text, nil, nil
	}

	group, err := s.groups.GetByID(ctx, in.GroupID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil, apperror.ValidationFailed("group", msgInvalidChoice)
		}
		return "", nil, fmt.Errorf("loading group %d: %w", in.GroupID, err)
	}
	return in.Text, group, nil
}

// page counts the filtered posts and fetches the requested slice. A page
// past the end comes back with no posts rather than an error.
func (s *PostService) page(ctx context.Context, filter repository.PostFilter, number int) (*PostPage, error) {
	total, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	page := pagination.New(number, pagination.PerPage, total)
	if !page.InRange() {
		return &PostPage{Posts: []model.Post{}, Page: page}, nil
	}

	posts, err := s.posts.List(ctx, filter, repository.ListOptions{
		Limit:  page.Limit(),
		Offset: page.Offset(),
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return &PostPage{Posts: posts, Page: page}, nil
}

// ParsePostID converts a URL segment to a post ID. Anything that is not a
// positive integer is NotFound, the same as a missing post.
func ParsePostID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NotFound("post", raw)
	}
	return id, nil
}
