// Command verifywoo is the operator CLI: schema migration, gateway and login settings, and test SMS.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/database"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
	"github.com/diagnosis/verifywoo/services/auth/internal/sms"
)

const Version = "0.1.0"

// app holds what the commands share. Tests swap the constructors for in-memory ones.
type app struct {
	cfg       *config.Config
	out       io.Writer
	factory   *sms.Factory
	openPool  func(ctx context.Context) (*pgxpool.Pool, error)
	openStore func(ctx context.Context) (repository.SettingsStore, func(), error)
}

func main() {
	cfg := config.Load()
	a := &app{
		cfg:     cfg,
		out:     os.Stdout,
		factory: sms.NewFactory(sms.DefaultDrivers(sms.WithKavenegarTimeout(cfg.SMS.HTTPTimeout))),
		openPool: func(ctx context.Context) (*pgxpool.Pool, error) {
			return database.Connect(ctx, cfg.Database)
		},
	}
	a.openStore = a.defaultStore

	if err := rootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) defaultStore(ctx context.Context) (repository.SettingsStore, func(), error) {
	gateway, general := repository.DefaultSettings(a.cfg)
	if a.cfg.SMS.SettingsSource == "env" {
		return repository.NewStaticSettingsStore(gateway, general), func() {}, nil
	}

	pool, err := a.openPool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresSettingsStore(pool, gateway, general), pool.Close, nil
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "verifywoo",
		Short:         "Operate the phone OTP login service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		migrateCmd(a),
		settingsCmd(a),
		smsCmd(a),
		hooksCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "verifywoo version %s\n", Version)
			},
		},
	)
	return cmd
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPool(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			if err := database.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Schema is up to date.")
			return nil
		},
	}
}
