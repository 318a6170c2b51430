// Package ui serves the healthdw dashboard API.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/healthdw/internal/ui/features/query"
	"github.com/leapstack-labs/healthdw/internal/ui/notifier"
	"github.com/leapstack-labs/healthdw/internal/ui/router"
	"github.com/leapstack-labs/healthdw/pkg/core"
	"golang.org/x/sync/errgroup"
)

const reloadDebounce = 100 * time.Millisecond

// Server is the dashboard server.
type Server struct {
	addr     string
	library  *query.Library
	notifier *notifier.Notifier
	handler  http.Handler
	logger   *slog.Logger
}

// Config holds configuration for the dashboard server.
type Config struct {
	Warehouse     core.Adapter
	Store         core.Store
	Host          string
	Port          int
	TemplatesFile string
	MaxRows       int
	QueryTimeout  time.Duration
	Logger        *slog.Logger
}

// NewServer creates a new dashboard server. It fails when the templates file
// cannot be loaded.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lib, err := query.NewLibrary(cfg.TemplatesFile)
	if err != nil {
		return nil, err
	}

	notify := notifier.New()
	queryHandlers := query.NewHandlers(cfg.Warehouse, lib, notify, query.Options{
		MaxRows:      cfg.MaxRows,
		QueryTimeout: cfg.QueryTimeout,
	}, logger)

	return &Server{
		addr:     net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		library:  lib,
		notifier: notify,
		logger:   logger,
		handler: router.New(router.Deps{
			Warehouse: cfg.Warehouse,
			Store:     cfg.Store,
			Library:   lib,
			Query:     queryHandlers,
		}),
	}, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until the context is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting dashboard server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.library.Path() != "" {
		eg.Go(func() error {
			return s.watchTemplates(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchTemplates reloads the template library when its file changes. The
// directory is watched so editors that replace the file are noticed.
func (s *Server) watchTemplates(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	path := filepath.Clean(s.library.Path())
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Error("failed to watch templates file", "error", err)
		<-ctx.Done()
		return nil
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, s.reloadTemplates)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) reloadTemplates() {
	if err := s.library.Reload(); err != nil {
		s.logger.Error("template reload failed, keeping previous set", "error", err)
		return
	}
	s.logger.Info("templates reloaded", "count", len(s.library.All()))
	s.notifier.Broadcast(notifier.TopicTemplates)
}
