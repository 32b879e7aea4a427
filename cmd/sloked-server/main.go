// Command sloked-server hosts the Sloked core behind an HTTP/WebSocket
// front door (pkg/server), generalizing the teacher's cmd/server from a
// flag-free env-only binary to a cobra command with flag/env/default
// precedence (pkg/config).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sloked-go/sloked/pkg/config"
	"github.com/sloked-go/sloked/pkg/document"
	"github.com/sloked-go/sloked/pkg/logger"
	"github.com/sloked-go/sloked/pkg/server"
)

func main() {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:   "sloked-server",
		Short: "Run the Sloked collaborative editing server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}
	cfg.BindFlags(root.Flags())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	os.Setenv("LOG_LEVEL", cfg.LogLevel)
	logger.Init()
	defer logger.Sync()

	logger.Info("starting sloked-server")
	logger.Info("listen address: %s", cfg.Addr)
	logger.Info("document expiry: %d days", cfg.ExpiryDays)
	if cfg.SQLiteURI != "" {
		logger.Info("persistence: %s", cfg.SQLiteURI)
	} else {
		logger.Info("persistence: disabled (in-memory only)")
	}

	docs, err := document.New(cfg.SQLiteURI, 256)
	if err != nil {
		logger.Error("opening document set: %v", err)
		return err
	}
	defer docs.Close()

	srv := server.New(docs, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.StartCleaner(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		srv.Shutdown(context.Background())
		os.Exit(0)
	}()

	return srv.ListenAndServe(cfg.Addr)
}
