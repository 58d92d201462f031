package server

import (
	"crypto/tls"
	"fmt"
)

// tlsMode normalizes the configured mode; empty means disabled.
func (s *Server) tlsMode() string {
	if s.config.TLS.Mode == "" {
		return "disabled"
	}
	return s.config.TLS.Mode
}

// configureTLS loads certificates and returns the TLS configuration for the
// configured mode, or nil when TLS is disabled.
func (s *Server) configureTLS() (*tls.Config, error) {
	switch s.tlsMode() {
	case "disabled":
		return nil, nil
	case "server", "mutual":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.config.TLS.Mode)
	}

	certManager := NewCertificateManager(s.config.TLS, s.metrics, s.logger)
	if err := certManager.Start(); err != nil {
		return nil, fmt.Errorf("failed to start certificate manager: %w", err)
	}
	s.certManager = certManager

	return s.buildTLSConfig(), nil
}

// buildTLSConfig creates the TLS configuration. Certificates and the client
// CA pool are read from the certificate manager on every handshake so
// reloads take effect without a restart.
func (s *Server) buildTLSConfig() *tls.Config {
	tlsConfig := &tls.Config{
		MinVersion:     minTLSVersion(s.config.TLS.MinVersion),
		GetCertificate: s.certManager.GetServerCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.tlsMode() == "mutual" {
		tlsConfig.ClientAuth = clientAuthPolicy(s.config.TLS.ClientAuthPolicy)
		tlsConfig.ClientCAs = s.certManager.CACertPool()
		tlsConfig.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
			perConn := tlsConfig.Clone()
			perConn.GetConfigForClient = nil
			perConn.ClientCAs = s.certManager.CACertPool()
			return perConn, nil
		}
	}

	return tlsConfig
}

// minTLSVersion maps the configured minimum TLS version.
func minTLSVersion(version string) uint16 {
	if version == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// clientAuthPolicy returns the appropriate client authentication policy
func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
