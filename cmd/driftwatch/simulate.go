package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hed1ad/driftwatch/pkg/client"
	"github.com/hed1ad/driftwatch/pkg/detectors"
	"github.com/hed1ad/driftwatch/pkg/simulate"
)

var (
	simServerURL   string
	simInterval    time.Duration
	simSeed        int64
	simCount       int
	simAnomalyRate float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Produce simulated sensor data and send it to the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		producer, err := client.Dial(simServerURL, logger)
		if err != nil {
			return err
		}
		defer producer.Close()

		opts := []simulate.Option{simulate.WithAnomalyRate(simAnomalyRate)}
		if simSeed != 0 {
			opts = append(opts, simulate.WithSeed(simSeed))
		}
		gen := simulate.New(opts...)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		samples := make(chan detectors.Sample)
		go func() {
			defer close(samples)
			for i := 0; simCount == 0 || i < simCount; i++ {
				s, _ := gen.Next()
				select {
				case samples <- s:
				case <-ctx.Done():
					return
				}
				if simInterval > 0 {
					select {
					case <-time.After(simInterval):
					case <-ctx.Done():
						return
					}
				}
			}
		}()

		err = producer.Run(ctx, samples, nil)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&simServerURL, "server", "s", "ws://localhost:8750/ingest", "ingest endpoint")
	simulateCmd.Flags().DurationVarP(&simInterval, "interval", "i", 300*time.Millisecond, "delay between samples")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed (0 for time-based)")
	simulateCmd.Flags().IntVarP(&simCount, "count", "n", 0, "samples to send (0 for unlimited)")
	simulateCmd.Flags().Float64Var(&simAnomalyRate, "anomaly-rate", 0.05, "fraction of samples with injected spikes")
}
