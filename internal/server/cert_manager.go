package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/observability"
)

// CertificateManager holds the server key pair and client CA pool and swaps
// them in place when the files on disk change.
type CertificateManager struct {
	mu sync.RWMutex

	serverCert       *tls.Certificate
	caCertPool       *x509.CertPool
	serverCertExpiry time.Time

	config  config.TLSConfig
	watcher *CertWatcher
	metrics *observability.Metrics
	logger  *errors.Logger

	stats CertificateStats
}

// CertificateStats summarizes reload activity.
type CertificateStats struct {
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadSuccess  bool
	LastReloadError    string
}

// NewCertificateManager creates a manager for the files named in tlsConfig.
func NewCertificateManager(tlsConfig config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) *CertificateManager {
	if logger == nil {
		logger = errors.Discard()
	}
	return &CertificateManager{
		config:  tlsConfig,
		metrics: metrics,
		logger:  logger,
	}
}

// Start loads the certificates and, when auto reload is on, begins watching
// their files.
func (cm *CertificateManager) Start() error {
	if err := cm.Reload(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}
	if !cm.config.AutoReload {
		return nil
	}

	watcher, err := NewCertWatcher(cm.watchedFiles(), 0, func() {
		if err := cm.Reload(); err != nil {
			cm.logger.LogError(err, "Failed to reload TLS certificates")
		}
	}, cm.logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	cm.mu.Lock()
	cm.watcher = watcher
	cm.mu.Unlock()
	return nil
}

// Stop stops the file watcher if one is running.
func (cm *CertificateManager) Stop() error {
	cm.mu.RLock()
	watcher := cm.watcher
	cm.mu.RUnlock()
	if watcher == nil {
		return nil
	}
	return watcher.Stop()
}

// Watching reports whether certificate files are being watched.
func (cm *CertificateManager) Watching() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.watcher != nil && cm.watcher.IsRunning()
}

func (cm *CertificateManager) watchedFiles() []string {
	files := []string{cm.config.CertFile, cm.config.KeyFile}
	if cm.config.Mode == "mutual" && cm.config.CAFile != "" {
		files = append(files, cm.config.CAFile)
	}
	return files
}

// GetServerCertificate returns the current server certificate for TLS handshakes
func (cm *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}

	if time.Now().After(cm.serverCertExpiry) {
		serverName := ""
		if hello != nil {
			serverName = hello.ServerName
		}
		cm.logger.Warn("Serving an expired certificate",
			"expiry", cm.serverCertExpiry,
			"server_name", serverName)
	}

	return cm.serverCert, nil
}

// CACertPool returns the current client CA pool, nil outside mutual mode.
func (cm *CertificateManager) CACertPool() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caCertPool
}

// CheckExpiry returns the time until the server certificate expires.
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.serverCertExpiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(cm.serverCertExpiry), nil
}

// Stats returns a snapshot of reload activity.
func (cm *CertificateManager) Stats() CertificateStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.stats
}

// Reload reads every certificate file again. The previous certificates stay
// in service when any file fails to load.
func (cm *CertificateManager) Reload() error {
	cert, expiry, pool, err := cm.load()

	cm.mu.Lock()
	cm.stats.LastReloadTime = time.Now()
	cm.stats.LastReloadSuccess = err == nil
	if err != nil {
		cm.stats.ReloadFailureCount++
		cm.stats.LastReloadError = err.Error()
	} else {
		cm.stats.ReloadSuccessCount++
		cm.stats.LastReloadError = ""
		cm.serverCert = cert
		cm.serverCertExpiry = expiry
		cm.caCertPool = pool
	}
	cm.mu.Unlock()

	cm.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		return err
	}
	cm.logger.Info("Certificates loaded", "server_cert_expiry", expiry)
	return nil
}

func (cm *CertificateManager) load() (*tls.Certificate, time.Time, *x509.CertPool, error) {
	cert, err := tls.LoadX509KeyPair(cm.config.CertFile, cm.config.KeyFile)
	if err != nil {
		return nil, time.Time{}, nil, fmt.Errorf("failed to load server cert/key: %w", err)
	}

	leaf := cert.Leaf
	if leaf == nil {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, time.Time{}, nil, fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	var pool *x509.CertPool
	if cm.config.Mode == "mutual" {
		if pool, err = loadCACertificatePool(cm.config.CAFile); err != nil {
			return nil, time.Time{}, nil, err
		}
	}
	return &cert, leaf.NotAfter, pool, nil
}

// loadCACertificatePool loads the CA certificate pool for client verification
func loadCACertificatePool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode")
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return caCertPool, nil
}
