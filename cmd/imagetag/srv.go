package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"imagetag/internal/blobstore"
	"imagetag/internal/config"
	"imagetag/internal/retry"
	"imagetag/internal/server"
	"imagetag/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the imagetag API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStoreWithRetry(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					logger.Warn("close metadata store", "error", err)
				}
			}()

			blobs, err := blobstore.NewLocalFS(cfg.UploadsPath)
			if err != nil {
				return err
			}
			logger.Info("using uploads directory", "path", blobs.Root())

			srv := server.New(addr, server.Deps{
				Metadata: st,
				Blobs:    blobs,
				Logger:   logger,
				Uploads: server.UploadOptions{
					MaxUploadBytes:          cfg.Uploads.MaxUploadBytes,
					MultipartMaxMemory:      cfg.Uploads.MultipartMaxMemory,
					AllowedMediaTypes:       cfg.Uploads.AllowedMediaTypes,
					RejectMediaTypeMismatch: cfg.Uploads.RejectMediaTypeMismatch,
				},
			})
			return srv.ListenAndServe(ctx)
		},
	}
}

// openStoreWithRetry waits for the metadata database, which may still be
// starting when the server comes up.
func openStoreWithRetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	backoff, err := cfg.ConnectBackoff()
	if err != nil {
		return nil, err
	}
	policy := retry.Policy{Attempts: cfg.Startup.ConnectAttempts, Backoff: backoff}

	var st *store.Store
	err = retry.Do(ctx, policy, logger, "open metadata store", func(ctx context.Context) error {
		opened, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		st = opened
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("metadata store ready", "dialect", st.Dialect())
	return st, nil
}
