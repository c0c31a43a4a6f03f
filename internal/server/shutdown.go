package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownTimeout bounds the graceful shutdown, dispatcher drain included.
const ShutdownTimeout = 30 * time.Second

// httpServer holds the HTTP server instance and its listener.
type httpServer struct {
	server   *http.Server
	listener net.Listener
	mu       sync.RWMutex
}

// Shutdown gracefully shuts down the server.
// If the server hasn't been started, this is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpServerMu.RLock()
	hs := s.httpServer
	s.httpServerMu.RUnlock()

	if hs == nil {
		return nil
	}

	hs.mu.RLock()
	server := hs.server
	hs.mu.RUnlock()

	if server == nil {
		return nil
	}

	return server.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if the server hasn't been started.
func (s *Server) Addr() string {
	s.httpServerMu.RLock()
	hs := s.httpServer
	s.httpServerMu.RUnlock()

	if hs == nil {
		return ""
	}

	hs.mu.RLock()
	defer hs.mu.RUnlock()

	if hs.listener == nil {
		return ""
	}

	return hs.listener.Addr().String()
}

// ListenAndServeWithShutdown serves until SIGINT, SIGTERM or a call to
// Shutdown. After a signal it stops accepting requests and then waits for
// in-flight analyses to finish.
func (s *Server) ListenAndServeWithShutdown() error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	// Listen first so the real address is known for port 0.
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	hs := &httpServer{
		server: &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
	}

	s.httpServerMu.Lock()
	s.httpServer = hs
	s.httpServerMu.Unlock()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverDone := make(chan error, 1)

	go func() {
		if err := hs.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	s.logger.Info("server started", "addr", listener.Addr().String())

	close(s.ready)

	select {
	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := hs.server.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown failed", "error", err)
		return err
	}
	<-serverDone

	if s.deps.Dispatcher != nil {
		s.logger.Info("waiting for analyses", "active", s.deps.Dispatcher.Active())
		if err := s.deps.Dispatcher.Wait(ctx); err != nil {
			s.logger.Warn("analyses still running at shutdown", "active", s.deps.Dispatcher.Active(), "error", err)
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
