// Command manage runs administrative tasks against the yatube database
// and page cache:
//
//	manage migrate
//	manage createuser --username leo --password 'correct horse'
//	manage creategroup --title "Cats" --slug cats --description "..."
//	manage clearcache
//
// It reads the same environment (and .env file) as the server.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/config"
	sqliteRepo "github.com/sakif/yatube/internal/repository/sqlite"
	"github.com/sakif/yatube/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is what every subcommand needs: configuration and a logger.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "manage",
		Short:        "Administrative tasks for yatube",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
			return nil
		},
	}

	root.AddCommand(
		a.migrateCmd(),
		a.createUserCmd(),
		a.createGroupCmd(),
		a.clearCacheCmd(),
	)
	return root
}

// openDB opens the configured database, applying pending migrations.
func (a *app) openDB() (*sqliteRepo.DB, error) {
	if a.cfg.DBPath != sqliteRepo.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return sqliteRepo.New(a.cfg.DBPath)
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", a.cfg.DBPath)
			return nil
		},
	}
}

func (a *app) createUserCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a password account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := server.NewServices(a.cfg, db, a.logger)
			if err != nil {
				return err
			}

			result, err := svc.Auth.Register(cmd.Context(), username, password, password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", result.User.Username, result.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&password, "password", "", "password, 8 to 72 bytes")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) createGroupCmd() *cobra.Command {
	var title, slug, description string

	cmd := &cobra.Command{
		Use:   "creategroup",
		Short: "Create a post group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := server.NewServices(a.cfg, db, a.logger)
			if err != nil {
				return err
			}

			group, err := svc.Groups.Create(cmd.Context(), title, slug, description)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created group %q at /group/%s/\n", group.Title, group.Slug)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "display title")
	cmd.Flags().StringVar(&slug, "slug", "", "URL identifier, letters, digits, - and _")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

func (a *app) clearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clearcache",
		Short: "Drop every cached page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RedisAddr == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "REDIS_ADDR is not set: the in-process cache lives in the server and expires on its own")
				return nil
			}

			pc, closeCache, err := server.OpenCache(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			if err := pc.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "page cache cleared")
			return nil
		},
	}
}

// describe turns a field error into "field: message" for the terminal.
func describe(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		return fmt.Errorf("%s: %s", appErr.Field, appErr.Message)
	}
	return err
}
