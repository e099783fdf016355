package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/logger"
)

// GracefulServer wraps Echo with graceful shutdown handling.
type GracefulServer struct {
	echo            *echo.Echo
	port            int
	shutdownTimeout time.Duration
}

// NewGracefulServer creates a new server with graceful shutdown
func NewGracefulServer(e *echo.Echo, port int, shutdownTimeout time.Duration) *GracefulServer {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &GracefulServer{echo: e, port: port, shutdownTimeout: shutdownTimeout}
}

// Start starts the server and blocks until SIGINT/SIGTERM, then shuts down.
func (s *GracefulServer) Start() error {
	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		logger.Info("starting HTTP server", logrus.Fields{"address": addr})
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.GetGlobalLogger().WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", logrus.Fields{"signal": sig.String()})

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *GracefulServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logrus.Fields{"error": err})
		return err
	}
	logger.Info("server shutdown completed", nil)
	return nil
}

// ShutdownManager collects component cleanup functions to run on exit.
type ShutdownManager struct {
	functions []func(context.Context) error
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{}
}

// Register adds a cleanup function to be called during shutdown
func (sm *ShutdownManager) Register(fn func(context.Context) error) {
	sm.functions = append(sm.functions, fn)
}

// Shutdown executes all registered cleanup functions, continuing past errors.
func (sm *ShutdownManager) Shutdown(ctx context.Context) {
	for i, fn := range sm.functions {
		if err := fn(ctx); err != nil {
			logger.Error("error during component shutdown", logrus.Fields{"component": i, "error": err})
		}
	}
}
