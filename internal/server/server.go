// Package server exposes Switchman's HTTP surface: ticket search,
// bulk field updates, bulk comments, bot workflow triggers, and the
// shared run log.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchman/internal/config"
	"github.com/zulandar/switchman/internal/runlog"
	"github.com/zulandar/switchman/internal/sync"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Client    sync.Client
	Sink      runlog.Sink
	Registry  sync.Registry
	Fields    config.FieldMap
	PageSize  int
	MaxIssues int
	Port      int
	Out       io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := newRouter(opts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Switchman listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// newRouter builds the Gin engine with all routes registered.
func newRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("server: jira client is required")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("server: run-log sink is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("server: workflow registry is required")
	}
	if opts.Port <= 0 {
		opts.Port = 5000
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxIssues <= 0 {
		opts.MaxIssues = 100
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	// The table/form frontend is served from another origin.
	router.Use(cors.Default())

	registerRoutes(router, opts)
	return router, nil
}
