package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/history"
)

var pruneOlderThan time.Duration

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Round history maintenance",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending postgres migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Backend != "postgres" {
			return fmt.Errorf("history: migrate needs the postgres backend, have %q", cfg.Storage.Backend)
		}
		dsn := cfg.Storage.DSN()
		if dsn == "" {
			return fmt.Errorf("history: %s is not set", cfg.Storage.DSNEnv)
		}
		if err := history.Migrate(dsn); err != nil {
			return err
		}
		zap.L().Info("history: migrations applied")
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete rounds older than --older-than (defaults to storage.retention)",
	RunE: func(cmd *cobra.Command, args []string) error {
		age := pruneOlderThan
		if age <= 0 {
			age = cfg.Storage.Retention
		}
		if age <= 0 {
			return errors.New("history: no retention configured, pass --older-than")
		}

		rec, err := history.Open(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer rec.Close()

		n, err := rec.Prune(cmd.Context(), time.Now().Add(-age))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d rounds older than %s\n", n, age)
		return nil
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "age cutoff, e.g. 72h")
	historyCmd.AddCommand(migrateCmd, pruneCmd)
}
