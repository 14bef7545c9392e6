package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"p2p-lending/internal/app"
	"p2p-lending/internal/config"
	"p2p-lending/internal/infrastructure/cache"
	"p2p-lending/internal/infrastructure/db"
	"p2p-lending/internal/infrastructure/logger"
	"p2p-lending/internal/usecase/reconcile"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "lendingctl",
		Short:         "Operator tooling for the lending service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(collectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env loads and validates the configuration and builds the logger.
func env() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	withMigrator := func(fn func(m *db.Migrator) error) error {
		cfg, log, err := env()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		m, err := db.NewMigrator(cfg.MigrationsPath, cfg.MigrateURL(), log.Named("migrate"))
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()
		return fn(m)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator) error { return m.Up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [N]",
		Short: "Roll back N migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}
			return withMigrator(func(m *db.Migrator) error { return m.Down(steps) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
				return nil
			})
		},
	})
	return cmd
}

// withApp opens the database and redis and runs fn against the wired app.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, log, err := env()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	gdb, err := db.OpenGorm(cmd.Context(), cfg.MySQLDSN(), cfg.DBOptions(), log)
	if err != nil {
		return err
	}
	rdb, err := cache.OpenRedis(cmd.Context(), cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	return fn(app.New(gdb, rdb, cfg.NotificationStream, cfg.Policy(), log))
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep collect|overdue|rollup|expire|all",
		Short:     "Run a reconciliation sweep once and print its report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append([]string{"all"}, reconcile.Jobs...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				if args[0] == "all" {
					reps, err := a.Sweeper.All(cmd.Context())
					if perr := printJSON(cmd, reps); perr != nil {
						return perr
					}
					return err
				}
				rep, err := a.Sweeper.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, rep)
			})
		},
	}
}

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect [payment_id]",
		Short: "Retry collection of a single installment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return printJSON(cmd, a.Payments.Retry(cmd.Context(), args[0]))
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
