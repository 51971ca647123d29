// Command predictor scrapes recent Crazy Time results, scores them locally,
// asks three language models for a guess and shows the consensus.
//
// The confidence it prints is synthetic. Outcomes are independent draws and
// nothing here can forecast them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
)

var (
	configPath string
	verbose    bool

	cfg      *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "predictor",
	Short: "Crazy Time history scraper and AI consensus board",
	Long: `predictor fetches the latest Crazy Time results from public trackers,
computes frequency and gap heuristics, asks Claude, GPT and Gemini for a
guess and combines everything into one consensus.

Confidence figures are synthetic and carry no predictive value.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, logLevel, err = newLogger(cfg.Log, verbose)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, predictCmd, probeCmd, watchCmd, historyCmd)
}

// newLogger builds a JSON production logger, or a console development one
// when format is "console". verbose forces debug level.
func newLogger(lc config.LogConfig, verbose bool) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, level, fmt.Errorf("log level %q: %w", lc.Level, err)
		}
	}
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	zc := zap.NewProductionConfig()
	if lc.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level

	l, err := zc.Build()
	if err != nil {
		return nil, level, fmt.Errorf("build logger: %w", err)
	}
	return l, level, nil
}

// setLevel applies a reloaded log level without rebuilding the logger.
func setLevel(level string) {
	if verbose || level == "" {
		return
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		zap.L().Warn("config: ignoring log level", zap.String("level", level), zap.Error(err))
		return
	}
	logLevel.SetLevel(l)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
