package config

import (
	"fmt"
	"os"
)

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}
	return validateTLSVersion(tls)
}

// validateTLSMode validates the TLS mode and associated requirements
func validateTLSMode(tls TLSConfig) error {
	switch tls.Mode {
	case "disabled", "":
		return nil
	case "server":
		return requireFiles(map[string]string{"certFile": tls.CertFile, "keyFile": tls.KeyFile})
	case "mutual":
		if err := requireFiles(map[string]string{"certFile": tls.CertFile, "keyFile": tls.KeyFile, "caFile": tls.CAFile}); err != nil {
			return err
		}
		return validateClientAuthPolicy(tls)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}
}

// requireFiles checks in a fixed order so error messages are stable.
func requireFiles(files map[string]string) error {
	for _, name := range []string{"certFile", "keyFile", "caFile"} {
		path, ok := files[name]
		if !ok {
			continue
		}
		if path == "" {
			return fmt.Errorf("%s is required when TLS is enabled", name)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func validateClientAuthPolicy(tls TLSConfig) error {
	switch tls.ClientAuthPolicy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
	}
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(tls TLSConfig) error {
	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil // Valid versions (empty defaults to 1.2)
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
