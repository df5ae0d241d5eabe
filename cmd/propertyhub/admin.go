package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Strob0t/PropertyHub/internal/adapter/postgres"
	phredis "github.com/Strob0t/PropertyHub/internal/adapter/redis"
	"github.com/Strob0t/PropertyHub/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator account tooling",
	}

	var createEmail, createPassword string
	create := &cobra.Command{
		Use:   "create-superadmin",
		Short: "Create the platform administrator account",
		Example: "  propertyhub admin create-superadmin --email admin@example.com\n" +
			"  propertyhub admin create-superadmin --email admin@example.com --password 'N3wPass!'",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := passwordOrPrompt(createPassword, "Password: ")
			if err != nil {
				return err
			}
			return withAuth(cmd.Context(), func(ctx context.Context, auth *service.AuthService) error {
				created, err := auth.EnsureSuperAdmin(ctx, createEmail, pass)
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintf(os.Stderr, "An account for %s already exists\n", createEmail)
					return nil
				}
				fmt.Fprintf(os.Stderr, "Superadmin created: %s\n", createEmail)
				return nil
			})
		},
	}
	create.Flags().StringVar(&createEmail, "email", "", "account email address (required)")
	create.Flags().StringVar(&createPassword, "password", "", "password (prompted if not provided)")
	_ = create.MarkFlagRequired("email")

	var resetEmail, resetPassword string
	reset := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for any account and revoke its sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pass, err := passwordOrPrompt(resetPassword, "New password: ")
			if err != nil {
				return err
			}
			return withAuth(cmd.Context(), func(ctx context.Context, auth *service.AuthService) error {
				if err := auth.ResetPassword(ctx, resetEmail, pass); err != nil {
					return fmt.Errorf("reset password: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", resetEmail)
				return nil
			})
		},
	}
	reset.Flags().StringVar(&resetEmail, "email", "", "account email address (required)")
	reset.Flags().StringVar(&resetPassword, "password", "", "new password (prompted if not provided)")
	_ = reset.MarkFlagRequired("email")

	cmd.AddCommand(create, reset)
	return cmd
}

// withAuth connects to Postgres and Redis and runs fn with an auth service.
// Revocations delete live records directly; sockets on running servers close
// on their next event, when the per-event liveness check fails.
func withAuth(ctx context.Context, fn func(context.Context, *service.AuthService) error) error {
	cfg, log, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	rdb, err := phredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()
	liveness := phredis.NewLiveness(rdb, phredis.NewBreaker(cfg.Breaker, log))

	store := postgres.NewStore(pool)
	tokens := service.NewTokenService(store, liveness, nil, nil, cfg.Auth, nil, log)
	return fn(ctx, service.NewAuthService(store, tokens, cfg.Auth, log))
}

// passwordOrPrompt returns given, or reads and confirms a password from the
// terminal without echo.
func passwordOrPrompt(given, prompt string) (string, error) {
	if given != "" {
		return given, nil
	}
	pass, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if pass != confirm {
		return "", errors.New("passwords do not match")
	}
	return pass, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
