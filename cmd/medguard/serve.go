package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/medguard/internal/app"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long:  `Starts the MedGuard server: document intake, session chat over SSE and WebSocket, report export and the audit log.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	serveCmd.Flags().StringVar(&serverHost, "host", "", "Server host (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	common.PrintBanner(config, logger)

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	srv := server.New(application)

	errChan := make(chan error, 1)
	common.SafeGo(logger, "http-server", func() {
		errChan <- srv.Start()
	})

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Interrupt signal received")
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
	return nil
}
