package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer, err := s.setupHTTPServer()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		s.cleanup()
		return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}

	return s.Serve(ctx, httpServer, listener)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() (*http.Server, error) {
	tlsConfig, err := s.configureTLS()
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              net.JoinHostPort(s.config.Host, s.config.Port),
		Handler:           s.Handler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}, nil
}

// Serve runs server on listener until ctx is done or serving fails.
func (s *Server) Serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	s.logServerInfo(server)

	serverErrors := make(chan error, 1)
	go func() {
		var err error
		if server.TLSConfig != nil {
			// Certificates come from TLSConfig.GetCertificate.
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		s.cleanup()
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Shutdown requested, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer s.cleanup()

	s.logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) cleanup() {
	s.stopCertificateManager()
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
}

func (s *Server) stopCertificateManager() {
	if s.certManager == nil {
		return
	}
	if err := s.certManager.Stop(); err != nil {
		s.logger.LogError(err, "Failed to stop certificate manager")
	}
}

// logServerInfo records the effective security settings at startup.
func (s *Server) logServerInfo(server *http.Server) {
	s.logger.Info("Starting HTTP server",
		"address", server.Addr,
		"tls_mode", s.tlsMode(),
		"auth_enabled", len(s.apiKeys) > 0,
		"max_request_size", s.config.MaxRequestSize,
		"rate_limit_enabled", s.rateLimiter != nil)

	if len(s.apiKeys) == 0 {
		s.logger.Warn("API authentication disabled: endpoints are publicly accessible")
	}
	if s.rateLimiter == nil {
		s.logger.Warn("Rate limiting disabled")
	}
	if s.config.TLS.AutoReload && s.certManager != nil {
		s.logger.Info("TLS auto-reload enabled", "watching", s.certManager.Watching())
	}
}
