// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware and
// routes, and decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB    → repositories → services → handlers
//	  cache        → CachePage middleware on "/"
//	  media.Store  → PostService (uploads) and /media/ (downloads)
//
// This is the "composition root": every dependency is built here and
// nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/cache"
	"github.com/sakif/yatube/internal/config"
	"github.com/sakif/yatube/internal/handler"
	"github.com/sakif/yatube/internal/media"
	"github.com/sakif/yatube/internal/middleware"
	sqliteRepo "github.com/sakif/yatube/internal/repository/sqlite"
	"github.com/sakif/yatube/internal/service"
	"github.com/sakif/yatube/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool and the page cache connection. Close
// releases both; Start calls it on the way out.
type Server struct {
	router     *chi.Mux
	config     config.Config
	logger     *slog.Logger
	db         *sqliteRepo.DB
	cache      cache.PageCache
	closeCache func() error
}

// New creates a Server from cfg: it opens the database (running
// migrations), connects the page cache and registers every route.
//
// Each layer only receives what it needs:
//   - Services get repository interfaces (not the concrete sqlite.DB)
//   - Handlers get services (not the repositories)
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pc, closeCache, err := OpenCache(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening page cache: %w", err)
	}

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		logger:     logger,
		db:         db,
		cache:      pc,
		closeCache: closeCache,
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// OpenCache returns the Redis page cache when REDIS_ADDR is set and the
// in-process cache otherwise. The returned func releases the connection.
func OpenCache(ctx context.Context, cfg config.Config) (cache.PageCache, func() error, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() error { return nil }, nil
	}
	rc, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return rc, rc.Close, nil
}

// Services bundles the business layer built on one database.
type Services struct {
	Auth     *service.AuthService
	Tokens   *auth.TokenService
	Posts    *service.PostService
	Comments *service.CommentService
	Follows  *service.FollowService
	Groups   *service.GroupService
}

// NewServices wires the repositories of db into services. The manage
// command uses it too, so both entry points share the same rules.
func NewServices(cfg config.Config, db *sqliteRepo.DB, logger *slog.Logger) (*Services, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	users := db.Users()
	posts := db.Posts()
	groups := db.Groups()

	return &Services{
		Auth:     service.NewAuthService(users, tokens, auth.NewPasswordService(), logger),
		Tokens:   tokens,
		Posts:    service.NewPostService(posts, groups, users, media.NewStore(cfg.MediaDir, logger), logger),
		Comments: service.NewCommentService(db.Comments(), posts, users, logger),
		Follows:  service.NewFollowService(db.Follows(), users, logger),
		Groups:   service.NewGroupService(groups, logger),
	}, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET       /                                → index (cached)
// GET       /group/{slug}/                   → group posts
// GET       /profile/{username}/             → author posts
// GET|POST  /profile/{username}/follow/      → follow (auth)
// GET|POST  /profile/{username}/unfollow/    → unfollow (auth)
// GET       /posts/{id}/                     → post detail
// GET|POST  /create/                         → new post (auth)
// GET|POST  /posts/{id}/edit/                → edit post (auth, author)
// POST      /posts/{id}/delete/              → delete post (auth, author)
// GET|POST  /posts/{id}/comment/             → add comment (auth)
// GET       /follow/                         → followed authors feed (auth)
// GET|POST  /auth/signup/, /auth/login/      → credentials
// GET|POST  /auth/logout/                    → clear session
// GET       /auth/github/{login,callback}    → OAuth, when configured
// GET       /api/v1/...                      → read-only JSON
// GET       /static/*, /media/*              → assets and uploads
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID assigns a unique ID to each request (for tracing)
//  2. RealIP extracts the real client IP from proxy headers
//  3. Recoverer catches panics and returns 500 instead of crashing
//  4. Logger logs each request with timing info
//  5. OptionalAuth reads the session cookie; RequireAuth and CachePage
//     rely on it
func (s *Server) setupRoutes() error {
	svc, err := NewServices(s.config, s.db, s.logger)
	if err != nil {
		return err
	}

	render, err := handler.NewRenderer(web.Templates(), svc.Auth, s.logger)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	posts := handler.NewPostHandler(svc.Posts, svc.Comments, svc.Follows, svc.Groups, render, s.logger)
	users := handler.NewAuthHandler(svc.Auth, svc.Tokens, github, render, s.logger)
	api := handler.NewAPIHandler(svc.Posts, svc.Comments, svc.Groups, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(auth.OptionalAuth(svc.Tokens))

	s.router.NotFound(render.NotFound)

	// === Static Files ===
	// GET /static/css/style.css → web/static/css/style.css (embedded)
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	// GET /media/posts/x.gif → {MediaDir}/posts/x.gif
	s.router.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(s.config.MediaDir))))

	// === Public Pages ===
	s.router.With(middleware.CachePage(s.cache, s.config.IndexCacheTTL, s.logger)).Get("/", posts.Index)
	s.router.Get("/group/{slug}/", posts.GroupList)
	s.router.Get("/profile/{username}/", posts.Profile)
	s.router.Get("/posts/{id}/", posts.Detail)

	// === Signed-in Pages ===
	// Anonymous requests are redirected to /auth/login/?next=<uri>.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/create/", posts.CreateForm)
		r.Post("/create/", posts.Create)
		r.Get("/posts/{id}/edit/", posts.EditForm)
		r.Post("/posts/{id}/edit/", posts.Edit)
		r.Post("/posts/{id}/delete/", posts.Delete)
		r.Get("/posts/{id}/comment/", posts.AddComment)
		r.Post("/posts/{id}/comment/", posts.AddComment)
		r.Get("/follow/", posts.FollowIndex)
		r.Get("/profile/{username}/follow/", posts.ProfileFollow)
		r.Post("/profile/{username}/follow/", posts.ProfileFollow)
		r.Get("/profile/{username}/unfollow/", posts.ProfileUnfollow)
		r.Post("/profile/{username}/unfollow/", posts.ProfileUnfollow)
	})

	// === Accounts ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/signup/", users.SignupForm)
		r.Post("/signup/", users.Signup)
		r.Get("/login/", users.LoginForm)
		r.Post("/login/", users.Login)
		r.Get("/logout/", users.Logout)
		r.Post("/logout/", users.Logout)

		if github != nil {
			r.Get("/github/login", users.GitHubLogin)
			r.Get("/github/callback", users.GitHubCallback)
		}
	})

	// === API Routes ===
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/posts/", api.ListPosts)
		r.Get("/posts/{id}/", api.GetPost)
		r.Get("/groups/", api.ListGroups)
	})

	return nil
}

// Handler returns the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ClearCache drops every cached page.
func (s *Server) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// Close releases the page cache and the database.
func (s *Server) Close() error {
	return errors.Join(s.closeCache(), s.db.Close())
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the cache connection and the database (flushes WAL, releases the file lock)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("redis", s.config.RedisAddr != ""),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
