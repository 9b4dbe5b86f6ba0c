package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/jwk"
	"github.com/largo-sh/largo/pkg/server"
	"github.com/largo-sh/largo/pkg/storage"
	_ "github.com/largo-sh/largo/pkg/storage/local" // storage driver
	_ "github.com/largo-sh/largo/pkg/storage/s3"    // storage driver
	"github.com/largo-sh/largo/pkg/transfer"
	_ "github.com/largo-sh/largo/pkg/transfer/basic"    // transfer adapter
	_ "github.com/largo-sh/largo/pkg/transfer/external" // transfer adapter
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := config.FromContext(ctx)

		// Write the default config on first run.
		if !cfg.Exist() {
			if err := cfg.WriteConfig(); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
		}

		strg, err := storage.New(ctx, cfg.Storage.Backend, cfg)
		if err != nil {
			return fmt.Errorf("create storage backend: %w", err)
		}

		ctx = storage.WithContext(ctx, strg)

		adapter, err := transfer.New(ctx, cfg.Transfer.Adapter, cfg, strg)
		if err != nil {
			return fmt.Errorf("create transfer adapter: %w", err)
		}

		ctx = transfer.WithContext(ctx, adapter)

		// The pair is loaded once here; request handling never touches the
		// key file.
		kp, err := jwk.NewPair(cfg)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}

		ctx = jwk.WithContext(ctx, kp)

		s, err := server.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}

		done := make(chan os.Signal, 1)
		lch := make(chan error, 1)
		go func() {
			defer close(lch)
			defer close(done)
			lch <- s.Start()
		}()

		signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		<-done

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			return err
		}

		// wait for serve to finish
		return <-lch
	},
}
