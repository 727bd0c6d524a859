package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"imagetag/internal/blobstore"
	"imagetag/internal/store"
)

const (
	allowRemoteEnvKey = "IMAGETAG_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second

	defaultUploadMaxBytes     int64 = 32 << 20 // 32 MiB
	defaultMultipartMaxMemory int64 = 8 << 20  // 8 MiB
)

// UploadOptions bounds multipart uploads and selects the media policy.
type UploadOptions struct {
	MaxUploadBytes          int64
	MultipartMaxMemory      int64
	AllowedMediaTypes       []string
	RejectMediaTypeMismatch bool
}

// Deps holds everything the server needs. Nothing is read from globals.
type Deps struct {
	Metadata store.MetadataStore
	Blobs    blobstore.BlobStore
	Logger   *slog.Logger
	Uploads  UploadOptions
}

// Server wraps HTTP handlers for the imagetag API.
type Server struct {
	addr     string
	metadata store.MetadataStore
	images   *ImageService
	tags     *TagService
	search   *SearchService
	logger   *slog.Logger

	uploadMaxBytes     int64
	multipartMaxMemory int64
}

// New creates a new server instance.
func New(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	uploads := deps.Uploads
	if uploads.MaxUploadBytes <= 0 {
		uploads.MaxUploadBytes = defaultUploadMaxBytes
	}
	if uploads.MultipartMaxMemory <= 0 {
		uploads.MultipartMaxMemory = defaultMultipartMaxMemory
	}

	lifecycle := NewTagLifecycle(logger)
	policy := NewMediaPolicy(uploads.AllowedMediaTypes, uploads.RejectMediaTypeMismatch)

	return &Server{
		addr:               addr,
		metadata:           deps.Metadata,
		images:             NewImageService(deps.Metadata, deps.Blobs, lifecycle, policy, logger),
		tags:               NewTagService(deps.Metadata, lifecycle),
		search:             NewSearchService(deps.Metadata),
		logger:             logger,
		uploadMaxBytes:     uploads.MaxUploadBytes,
		multipartMaxMemory: uploads.MultipartMaxMemory,
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
