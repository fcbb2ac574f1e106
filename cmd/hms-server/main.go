package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/platform/auth"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital management API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(rolesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a token pair for a seeded user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("user")
			if username == "" {
				return fmt.Errorf("--user is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sd, err := loadSeed(true, time.Now())
			if err != nil {
				return err
			}
			a, err := newApp(cfg, zerolog.Nop(), sd)
			if err != nil {
				return err
			}

			u, err := a.staff.GetUserByUsername(context.Background(), username)
			if err != nil {
				return err
			}
			pair, err := a.issuer.Issue(u.Actor())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access_token:  %s\nrefresh_token: %s\nexpires_in:    %ds\n",
				pair.AccessToken, pair.RefreshToken, pair.ExpiresIn)
			return nil
		},
	}
	cmd.Flags().String("user", "", "Username from the seed data")
	return cmd
}

func rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Print the role to permission table",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROLE\tPERMISSIONS")
			for _, role := range auth.AllRoles {
				perms := auth.PermissionsForRole(role).List()
				names := make([]string, len(perms))
				for i, p := range perms {
					names[i] = string(p)
				}
				fmt.Fprintf(w, "%s\t%s\n", role, strings.Join(names, ", "))
			}
			return w.Flush()
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func runServer() error {
	// Config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Logger
	logger := newLogger(cfg)
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: requests without a token act as the dev admin")
	}

	// Seed data
	sd, err := loadSeed(cfg.SeedFixtures, time.Now())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load fixtures")
	}
	logger.Info().
		Int("users", len(sd.users)).
		Int("patients", len(sd.patients)).
		Int("appointments", len(sd.appointments)).
		Int("inventory", len(sd.inventory)).
		Int("referrals", len(sd.referrals)).
		Msg("seed data loaded")

	a, err := newApp(cfg, logger, sd)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.startSweepers(ctx)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
