package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/service"
)

// APIHandler serves the read-only JSON API under /api/v1.
type APIHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	groups   *service.GroupService
	logger   *slog.Logger
}

func NewAPIHandler(
	posts *service.PostService,
	comments *service.CommentService,
	groups *service.GroupService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{posts: posts, comments: comments, groups: groups, logger: logger}
}

// PostListResponse is one page of posts.
type PostListResponse struct {
	Count    int          `json:"count"`
	Page     int          `json:"page"`
	NumPages int          `json:"num_pages"`
	Results  []model.Post `json:"results"`
}

// PostDetailResponse is a post with all of its comments.
type PostDetailResponse struct {
	model.Post
	Comments []model.Comment `json:"comments"`
}

// ListPosts returns one page of all posts.
//
// HTTP: GET /api/v1/posts/?page=N
func (h *APIHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := h.posts.Index(r.Context(), pageNumber(r))
	if err != nil {
		h.logger.Error("api: listing posts failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PostListResponse{
		Count:    page.Page.Total,
		Page:     page.Page.Number,
		NumPages: page.Page.NumPages(),
		Results:  page.Posts,
	})
}

// GetPost returns a post and its comments.
//
// HTTP: GET /api/v1/posts/{id}/
func (h *APIHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.comments.ListForPost(r.Context(), id)
	if err != nil {
		h.logger.Error("api: listing comments failed",
			slog.Int64("post", id),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}

	writeJSON(w, http.StatusOK, PostDetailResponse{Post: *post, Comments: comments})
}

// ListGroups returns every group ordered by title.
//
// HTTP: GET /api/v1/groups/
func (h *APIHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		h.logger.Error("api: listing groups failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
