package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler manages sign-up, password login, logout and the optional
// GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - SignupForm / Signup   → create a password account and sign it in
//   - LoginForm / Login     → check credentials, honour ?next=
//   - Logout                → clear the session cookie
//   - GitHubLogin           → redirect the browser to GitHub's authorization page
//   - GitHubCallback        → receive the code, exchange it for a user, issue JWT
//
// DEPENDENCY CHAIN:
//   - users  *service.AuthService → rules, bcrypt and JWT issuing
//   - tokens *auth.TokenService   → cookie lifetime
//   - github *auth.GitHubProvider → nil when OAuth is not configured
type AuthHandler struct {
	users  *service.AuthService
	tokens *auth.TokenService
	github *auth.GitHubProvider
	render *Renderer
	logger *slog.Logger
}

func NewAuthHandler(
	users *service.AuthService,
	tokens *auth.TokenService,
	github *auth.GitHubProvider,
	render *Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		github: github,
		render: render,
		logger: logger,
	}
}

// SignupForm shows the registration form.
//
// HTTP: GET /auth/signup/
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, tmplSignup, map[string]any{"Form": newForm(nil)})
}

// Signup creates the account, signs it in and redirects home.
//
// HTTP: POST /auth/signup/
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := newForm(r.PostForm)

	result, err := h.users.Register(r.Context(), form.Get("username"), form.Get("password1"), form.Get("password2"))
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.render.RenderError(w, r, err)
			return
		}
		form.AddError(err)
		h.render.Render(w, r, http.StatusBadRequest, tmplSignup, map[string]any{"Form": form})
		return
	}

	auth.SetSessionCookie(w, r, result.Token, h.tokens)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LoginForm shows the login form. ?next= is carried through a hidden field.
//
// HTTP: GET /auth/login/
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, tmplLogin, map[string]any{
		"Form":   newForm(nil),
		"Next":   r.URL.Query().Get("next"),
		"GitHub": h.github != nil,
	})
}

// Login checks the credentials and redirects to next, or home when next
// is missing or not a local path. Bad credentials re-render the form with
// status 400.
//
// HTTP: POST /auth/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := newForm(r.PostForm)
	next := r.Form.Get("next")

	result, err := h.users.Login(r.Context(), form.Get("username"), form.Get("password"))
	if err != nil {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			h.render.RenderError(w, r, err)
			return
		}
		form.AddError(err)
		h.render.Render(w, r, http.StatusBadRequest, tmplLogin, map[string]any{
			"Form":   form,
			"Next":   next,
			"GitHub": h.github != nil,
		})
		return
	}

	auth.SetSessionCookie(w, r, result.Token, h.tokens)
	http.Redirect(w, r, auth.SafeNext(next), http.StatusSeeOther)
}

// Logout clears the session cookie and renders the logged-out page.
//
// Sessions are stateless JWTs, so "logout" only deletes the client-side
// cookie. The token stays valid until it expires.
//
// HTTP: GET|POST /auth/logout/
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	// the cookie is gone from the response, not from this request
	r = r.WithContext(auth.WithUserID(r.Context(), ""))
	h.render.Render(w, r, http.StatusOK, tmplLoggedOut, nil)
}

// GitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into
// the authorization URL. GitHubCallback only proceeds when both match,
// which proves this server started the flow.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// GitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user and issue a session token
//  4. Redirect home
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", stateCookie.Value),
			slog.String("got", r.URL.Query().Get("state")),
		)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Upsert user and issue the session ---
	result, err := h.users.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, r, result.Token, h.tokens)

	// --- Step 4: Redirect to the app ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
