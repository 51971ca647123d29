package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/schedule"
	"github.com/ramshi122/crazy-time-predictor/internal/tui"
)

var watchLogFile string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run rounds locally and render them in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		// Log lines would tear the alt screen.
		restore := zap.ReplaceGlobals(zap.NewNop())
		defer restore()
		if watchLogFile != "" {
			zc := zap.NewProductionConfig()
			zc.Level = logLevel
			zc.OutputPaths = []string{watchLogFile}
			zc.ErrorOutputPaths = []string{watchLogFile}
			l, err := zc.Build()
			if err != nil {
				return err
			}
			defer l.Sync() //nolint:errcheck
			zap.ReplaceGlobals(l)
		}

		c, err := newCore(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		runner := schedule.NewRunner(c.pred, c.observe)
		return tui.Run(ctx, runner, cfg.Schedule.Interval, cfg.Schedule.Enabled)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "write logs to this file while the TUI runs")
}
