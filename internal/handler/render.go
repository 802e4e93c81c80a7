// Package handler contains the HTTP handlers of the blog.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (URL params, query, form body)
//  2. Call the service layer
//  3. Render a template, redirect, or write JSON
//
// Handlers hold no business rules. Ownership checks, validation and
// pagination live in the service package; handlers only decide which
// HTTP outcome each service result maps to.
package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/model"
)

// Page templates, relative to the template root.
const (
	tmplIndex      = "posts/index.html"
	tmplGroupList  = "posts/group_list.html"
	tmplProfile    = "posts/profile.html"
	tmplPostDetail = "posts/post_detail.html"
	tmplCreatePost = "posts/create_post.html"
	tmplFollow     = "posts/follow.html"
	tmplLogin      = "users/login.html"
	tmplSignup     = "users/signup.html"
	tmplLoggedOut  = "users/logged_out.html"
	tmpl404        = "core/404.html"
	tmpl500        = "core/500.html"
)

var pageTemplates = []string{
	tmplIndex, tmplGroupList, tmplProfile, tmplPostDetail, tmplCreatePost, tmplFollow,
	tmplLogin, tmplSignup, tmplLoggedOut, tmpl404, tmpl500,
}

// UserLookup resolves the session's user ID to an account.
// service.AuthService implements it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Renderer holds the parsed page templates.
//
// TEMPLATE COMPOSITION:
// Every page is parsed together with base.html and includes/*.html into
// its own template set. base.html defines the layout and calls
// {{template "content" .}}; each page defines "content" (and optionally
// "title"). Separate sets keep one page's "content" from overwriting
// another's.
type Renderer struct {
	pages  map[string]*template.Template
	users  UserLookup
	logger *slog.Logger
}

// NewRenderer parses every page template from fsys once, at startup.
func NewRenderer(fsys fs.FS, users UserLookup, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"media":    mediaURL,
		"date":     formatDate,
		"truncate": truncate,
		"pageURL":  pageURL,
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(fsys, "base.html", "includes/*.html", name)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, users: users, logger: logger}, nil
}

// Render executes page name with data and writes it with status.
//
// The signed-in user is added as "Viewer". Output is buffered so a template
// error becomes a clean 500 instead of a half-written page.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	tmpl, ok := rd.pages[name]
	if !ok {
		rd.logger.ErrorContext(r.Context(), "unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	if viewer := rd.viewer(r); viewer != nil {
		data["Viewer"] = viewer
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.ErrorContext(r.Context(), "failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.logger.DebugContext(r.Context(), "client went away", slog.String("error", err.Error()))
	}
}

// RenderError renders the themed page for err: 404 for NotFound, 500 with
// an error log for anything else.
func (rd *Renderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		rd.NotFound(w, r)
		return
	}

	rd.logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	rd.Render(w, r, http.StatusInternalServerError, tmpl500, nil)
}

// NotFound renders core/404.html. The router uses it for unknown paths.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusNotFound, tmpl404, map[string]any{"Path": r.URL.Path})
}

// viewer loads the signed-in user. A token whose user no longer exists is
// treated as anonymous.
func (rd *Renderer) viewer(r *http.Request) *model.User {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := rd.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			rd.logger.WarnContext(r.Context(), "failed to load viewer",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return user
}

func mediaURL(rel string) string {
	return "/media/" + strings.TrimPrefix(rel, "/")
}

func formatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

// truncate shortens s to n characters, adding an ellipsis when it cuts.
func truncate(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func pageURL(base string, number int) string {
	return base + "?page=" + strconv.Itoa(number)
}
