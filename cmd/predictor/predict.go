package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/history"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/schedule"
)

var predictRecord bool

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one prediction round and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return predictOnce(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	predictCmd.Flags().BoolVar(&predictRecord, "record", false, "store the round in the configured history backend")
}

func predictOnce(ctx context.Context, cfg *config.Config, out io.Writer) error {
	c, err := newCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	var recordErr error
	sinks := []schedule.Sink{c.observe}
	if predictRecord {
		rec, err := history.Open(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer rec.Close()
		sinks = append(sinks, func(ctx context.Context, r *predictor.Round) {
			recordErr = rec.Record(ctx, r)
		})
	}

	round, err := schedule.NewRunner(c.pred, sinks...).Run(ctx)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(round); err != nil {
		return err
	}
	if recordErr != nil {
		return fmt.Errorf("predict: record: %w", recordErr)
	}
	return nil
}
