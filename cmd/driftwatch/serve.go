package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hed1ad/driftwatch/pkg/server"
)

var (
	serveConfigPath string
	serveListen     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the detection service",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg := server.DefaultConfig()
		if serveConfigPath != "" {
			loaded, err := server.LoadConfig(serveConfigPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if serveListen != "" {
			cfg.Listen = serveListen
		}

		srv := server.New(cfg, logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "YAML config file")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (overrides config)")
}
