package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/pagination"
	"github.com/sakif/yatube/internal/service"
)

// PostHandler serves the post pages: listings, detail, the create/edit
// forms, comments and follow actions.
type PostHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	follows  *service.FollowService
	groups   *service.GroupService
	render   *Renderer
	logger   *slog.Logger
}

func NewPostHandler(
	posts *service.PostService,
	comments *service.CommentService,
	follows *service.FollowService,
	groups *service.GroupService,
	render *Renderer,
	logger *slog.Logger,
) *PostHandler {
	return &PostHandler{
		posts:    posts,
		comments: comments,
		follows:  follows,
		groups:   groups,
		render:   render,
		logger:   logger,
	}
}

// Index lists every post, newest first.
//
// HTTP: GET /?page=N
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.posts.Index(r.Context(), pageNumber(r))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, tmplIndex, map[string]any{
		"Page":    page,
		"PageURL": "/",
	})
}

// GroupList lists the posts of one group.
//
// HTTP: GET /group/{slug}/?page=N
func (h *PostHandler) GroupList(w http.ResponseWriter, r *http.Request) {
	group, page, err := h.posts.GroupPosts(r.Context(), chi.URLParam(r, "slug"), pageNumber(r))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, tmplGroupList, map[string]any{
		"Group":   group,
		"Page":    page,
		"PageURL": r.URL.Path,
	})
}

// Profile lists one author's posts with their post count and, for a
// signed-in viewer, whether they follow the author.
//
// HTTP: GET /profile/{username}/?page=N
func (h *PostHandler) Profile(w http.ResponseWriter, r *http.Request) {
	author, page, err := h.posts.ProfilePosts(r.Context(), chi.URLParam(r, "username"), pageNumber(r))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	viewerID, _ := auth.UserIDFromContext(r.Context())
	following, err := h.follows.IsFollowing(r.Context(), viewerID, author.ID)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, tmplProfile, map[string]any{
		"Author":    author,
		"Page":      page,
		"Following": following,
		"PageURL":   r.URL.Path,
	})
}

// Detail shows a post with its comments and an empty comment form.
//
// HTTP: GET /posts/{id}/
func (h *PostHandler) Detail(w http.ResponseWriter, r *http.Request) {
	post, err := h.loadPost(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	comments, err := h.comments.ListForPost(r.Context(), post.ID)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	count, err := h.posts.CountByAuthor(r.Context(), post.Author.ID)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	h.render.Render(w, r, http.StatusOK, tmplPostDetail, map[string]any{
		"Post":            post,
		"Comments":        comments,
		"AuthorPostCount": count,
		"Form":            newForm(nil),
	})
}

// CreateForm shows the empty post form.
//
// HTTP: GET /create/ (auth)
func (h *PostHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderPostForm(w, r, http.StatusOK, newForm(nil), nil)
}

// Create saves a new post by the signed-in user and redirects to their
// profile. An invalid form is shown again with its errors and status 400.
//
// HTTP: POST /create/ (auth)
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	in, form, closeForm, err := bindPostForm(r)
	defer closeForm()
	if err != nil {
		h.invalidPostForm(w, r, form, nil, err)
		return
	}

	post, err := h.posts.Create(r.Context(), userID, in)
	if err != nil {
		h.invalidPostForm(w, r, form, nil, err)
		return
	}

	http.Redirect(w, r, profilePath(post.Author.Username), http.StatusSeeOther)
}

// EditForm shows the post form filled with the current values. Anyone but
// the author is sent back to the detail page.
//
// HTTP: GET /posts/{id}/edit/ (auth)
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	post, err := h.loadPost(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if post.Author.ID != userID {
		http.Redirect(w, r, postPath(post.ID), http.StatusFound)
		return
	}

	values := url.Values{"text": {post.Text}}
	if post.Group != nil {
		values.Set("group", strconv.FormatInt(post.Group.ID, 10))
	}
	h.renderPostForm(w, r, http.StatusOK, newForm(values), post)
}

// Edit updates a post in place and redirects to its detail page.
//
// HTTP: POST /posts/{id}/edit/ (auth)
func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	post, err := h.loadPost(r)
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	if post.Author.ID != userID {
		http.Redirect(w, r, postPath(post.ID), http.StatusFound)
		return
	}

	in, form, closeForm, err := bindPostForm(r)
	defer closeForm()
	if err != nil {
		h.invalidPostForm(w, r, form, post, err)
		return
	}

	updated, err := h.posts.Update(r.Context(), userID, post.ID, in)
	switch {
	case err == nil:
		http.Redirect(w, r, postPath(updated.ID), http.StatusSeeOther)
	case errors.Is(err, apperror.ErrForbidden):
		http.Redirect(w, r, postPath(post.ID), http.StatusFound)
	default:
		h.invalidPostForm(w, r, form, post, err)
	}
}

// Delete removes a post and redirects to the author's profile.
//
// HTTP: POST /posts/{id}/delete/ (auth)
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	post, err := h.posts.Delete(r.Context(), userID, id)
	switch {
	case err == nil:
		http.Redirect(w, r, profilePath(post.Author.Username), http.StatusSeeOther)
	case errors.Is(err, apperror.ErrForbidden):
		http.Redirect(w, r, postPath(id), http.StatusFound)
	default:
		h.render.RenderError(w, r, err)
	}
}

// AddComment stores a comment and returns to the post. Blank text saves
// nothing but redirects all the same; a GET just redirects.
//
// HTTP: GET|POST /posts/{id}/comment/ (auth)
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		if _, err := h.posts.Get(r.Context(), id); err != nil {
			h.render.RenderError(w, r, err)
			return
		}
		http.Redirect(w, r, postPath(id), http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, postPath(id), http.StatusFound)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	_, err = h.comments.Add(r.Context(), userID, id, r.PostForm.Get("text"))
	if err != nil && !errors.Is(err, apperror.ErrValidation) {
		h.render.RenderError(w, r, err)
		return
	}
	http.Redirect(w, r, postPath(id), http.StatusFound)
}

// FollowIndex lists posts by the authors the viewer follows.
//
// HTTP: GET /follow/?page=N (auth)
func (h *PostHandler) FollowIndex(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	page, err := h.posts.Feed(r.Context(), userID, pageNumber(r))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, tmplFollow, map[string]any{
		"Page":    page,
		"PageURL": "/follow/",
	})
}

// ProfileFollow subscribes the viewer to an author and returns to the
// profile. Following yourself or following twice changes nothing.
//
// HTTP: GET|POST /profile/{username}/follow/ (auth)
func (h *PostHandler) ProfileFollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	author, err := h.follows.Follow(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}
	http.Redirect(w, r, profilePath(author.Username), http.StatusFound)
}

// ProfileUnfollow removes the subscription, if any, and returns to the
// profile.
//
// HTTP: GET|POST /profile/{username}/unfollow/ (auth)
func (h *PostHandler) ProfileUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	author, err := h.follows.Unfollow(r.Context(), userID, chi.URLParam(r, "username"))
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}
	http.Redirect(w, r, profilePath(author.Username), http.StatusFound)
}

func (h *PostHandler) loadPost(r *http.Request) (*model.Post, error) {
	id, err := service.ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return h.posts.Get(r.Context(), id)
}

// invalidPostForm re-renders the form for a validation error and falls
// back to the error page for anything else.
func (h *PostHandler) invalidPostForm(w http.ResponseWriter, r *http.Request, form *Form, post *model.Post, err error) {
	if !errors.Is(err, apperror.ErrValidation) {
		h.render.RenderError(w, r, err)
		return
	}
	if form == nil {
		form = newForm(nil)
	}
	form.AddError(err)
	h.renderPostForm(w, r, http.StatusBadRequest, form, post)
}

// renderPostForm shows create_post.html. A nil post is the create form.
func (h *PostHandler) renderPostForm(w http.ResponseWriter, r *http.Request, status int, form *Form, post *model.Post) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.render.RenderError(w, r, err)
		return
	}

	data := map[string]any{
		"Form":   form,
		"Groups": groups,
		"Fields": model.PostFields,
		"IsEdit": post != nil,
		"Action": "/create/",
	}
	if post != nil {
		data["Action"] = postPath(post.ID) + "edit/"
		data["CurrentImage"] = post.Image
	}
	h.render.Render(w, r, status, tmplCreatePost, data)
}

func pageNumber(r *http.Request) int {
	return pagination.ParseNumber(r.URL.Query().Get("page"))
}

func postPath(id int64) string {
	return "/posts/" + strconv.FormatInt(id, 10) + "/"
}

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
