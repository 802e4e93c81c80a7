package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// In-memory fakes for the repository interfaces. Hand-written fakes keep
// the tests free of mocking frameworks; every behavior is visible here.

var errDB = errors.New("database is on fire")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// store is the shared state behind all the fakes, so a post can see its
// author and the feed filter can see follow edges.
type store struct {
	users    map[string]*model.User
	groups   map[int64]*model.Group
	posts    map[int64]*model.Post
	comments []model.Comment
	follows  map[[2]string]bool
	nextID   int64
}

func newStore() *store {
	return &store{
		users:   make(map[string]*model.User),
		groups:  make(map[int64]*model.Group),
		posts:   make(map[int64]*model.Post),
		follows: make(map[[2]string]bool),
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

// ---- users ----

type fakeUserRepo struct {
	s         *store
	createErr error
	upsertErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.s.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	user.ID = "user-" + strconv.FormatInt(f.s.id(), 10)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.s.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, u := range f.s.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.Email = user.Email
			u.AvatarURL = user.AvatarURL
			*user = *u
			return nil
		}
	}
	return f.Create(ctx, user)
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

// ---- groups ----

type fakeGroupRepo struct{ s *store }

var _ repository.GroupRepository = (*fakeGroupRepo)(nil)

func (f *fakeGroupRepo) Create(_ context.Context, group *model.Group) error {
	for _, g := range f.s.groups {
		if g.Slug == group.Slug {
			return apperror.Conflict("group", group.Slug)
		}
	}
	group.ID = f.s.id()
	copied := *group
	f.s.groups[group.ID] = &copied
	return nil
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id int64) (*model.Group, error) {
	g, ok := f.s.groups[id]
	if !ok {
		return nil, apperror.NotFound("group", strconv.FormatInt(id, 10))
	}
	copied := *g
	return &copied, nil
}

func (f *fakeGroupRepo) GetBySlug(_ context.Context, slug string) (*model.Group, error) {
	for _, g := range f.s.groups {
		if g.Slug == slug {
			copied := *g
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("group", slug)
}

func (f *fakeGroupRepo) List(_ context.Context) ([]model.Group, error) {
	groups := []model.Group{}
	for _, g := range f.s.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

// ---- posts ----

type fakePostRepo struct {
	s         *store
	listErr   error
	createErr error
	updateErr error
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func (f *fakePostRepo) Create(_ context.Context, post *model.Post) error {
	if f.createErr != nil {
		return f.createErr
	}
	post.ID = f.s.id()
	post.PubDate = time.Now()
	copied := *post
	f.s.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id int64) (*model.Post, error) {
	p, ok := f.s.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	copied := *p
	return &copied, nil
}

func (f *fakePostRepo) matching(filter repository.PostFilter) []model.Post {
	var out []model.Post
	for _, p := range f.s.posts {
		if filter.GroupID != 0 && p.GroupID() != filter.GroupID {
			continue
		}
		if filter.AuthorID != "" && p.Author.ID != filter.AuthorID {
			continue
		}
		if filter.FollowerID != "" && !f.s.follows[[2]string{filter.FollowerID, p.Author.ID}] {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakePostRepo) List(_ context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	all := f.matching(filter)
	start := min(opts.Offset, len(all))
	end := len(all)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(all))
	}
	return append([]model.Post{}, all[start:end]...), nil
}

func (f *fakePostRepo) Count(_ context.Context, filter repository.PostFilter) (int, error) {
	return len(f.matching(filter)), nil
}

func (f *fakePostRepo) Update(_ context.Context, post *model.Post) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.s.posts[post.ID]; !ok {
		return apperror.NotFound("post", strconv.FormatInt(post.ID, 10))
	}
	copied := *post
	f.s.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.s.posts[id]; !ok {
		return apperror.NotFound("post", strconv.FormatInt(id, 10))
	}
	delete(f.s.posts, id)
	return nil
}

// ---- comments ----

type fakeCommentRepo struct {
	s         *store
	createErr error
}

var _ repository.CommentRepository = (*fakeCommentRepo)(nil)

func (f *fakeCommentRepo) Create(_ context.Context, c *model.Comment) error {
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = f.s.id()
	c.Created = time.Now()
	f.s.comments = append(f.s.comments, *c)
	return nil
}

func (f *fakeCommentRepo) ListByPost(_ context.Context, postID int64) ([]model.Comment, error) {
	out := []model.Comment{}
	for _, c := range f.s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ---- follows ----

type fakeFollowRepo struct {
	s         *store
	createErr error
}

var _ repository.FollowRepository = (*fakeFollowRepo)(nil)

func (f *fakeFollowRepo) Create(_ context.Context, follow *model.Follow) error {
	if f.createErr != nil {
		return f.createErr
	}
	key := [2]string{follow.UserID, follow.AuthorID}
	if follow.UserID == follow.AuthorID {
		return apperror.Forbidden("self follow")
	}
	if f.s.follows[key] {
		return apperror.Conflict("follow", follow.UserID+"->"+follow.AuthorID)
	}
	f.s.follows[key] = true
	follow.ID = f.s.id()
	return nil
}

func (f *fakeFollowRepo) Delete(_ context.Context, userID, authorID string) error {
	key := [2]string{userID, authorID}
	if !f.s.follows[key] {
		return apperror.NotFound("follow", userID+"->"+authorID)
	}
	delete(f.s.follows, key)
	return nil
}

func (f *fakeFollowRepo) Exists(_ context.Context, userID, authorID string) (bool, error) {
	return f.s.follows[[2]string{userID, authorID}], nil
}

// ---- images ----

type fakeImageStore struct {
	saved   []string
	removed []string
	err     error
}

func (f *fakeImageStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	path := fmt.Sprintf("posts/%s", filename)
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeImageStore) Remove(_ context.Context, rel string) {
	f.removed = append(f.removed, rel)
}

// ---- fixtures ----

// fixture wires every service to one shared store.
type fixture struct {
	store    *store
	users    *fakeUserRepo
	groups   *fakeGroupRepo
	posts    *fakePostRepo
	comments *fakeCommentRepo
	follows  *fakeFollowRepo
	images   *fakeImageStore

	postSvc    *PostService
	commentSvc *CommentService
	followSvc  *FollowService
	groupSvc   *GroupService
}

func newFixture() *fixture {
	s := newStore()
	f := &fixture{
		store:    s,
		users:    &fakeUserRepo{s: s},
		groups:   &fakeGroupRepo{s: s},
		posts:    &fakePostRepo{s: s},
		comments: &fakeCommentRepo{s: s},
		follows:  &fakeFollowRepo{s: s},
		images:   &fakeImageStore{},
	}
	logger := discardLogger()
	f.postSvc = NewPostService(f.posts, f.groups, f.users, f.images, logger)
	f.commentSvc = NewCommentService(f.comments, f.posts, f.users, logger)
	f.followSvc = NewFollowService(f.follows, f.users, logger)
	f.groupSvc = NewGroupService(f.groups, logger)
	return f
}

func (f *fixture) user(name string) *model.User {
	u := &model.User{Username: name}
	if err := f.users.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (f *fixture) group(slug string) *model.Group {
	g := &model.Group{Title: "Group " + slug, Slug: slug}
	if err := f.groups.Create(context.Background(), g); err != nil {
		panic(err)
	}
	return g
}

func (f *fixture) post(author *model.User, group *model.Group, text string) *model.Post {
	p := &model.Post{Text: text, Author: *author, Group: group}
	if err := f.posts.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}
