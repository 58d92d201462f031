package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTLSConfig(t *testing.T) {
	cert := writeFile(t, "cert.pem", "cert")
	key := writeFile(t, "key.pem", "key")
	ca := writeFile(t, "ca.pem", "ca")

	tests := []struct {
		name    string
		tls     TLSConfig
		wantErr string
	}{
		{name: "disabled", tls: TLSConfig{Mode: "disabled"}},
		{name: "empty mode is disabled", tls: TLSConfig{}},
		{name: "server mode", tls: TLSConfig{Mode: "server", CertFile: cert, KeyFile: key, MinVersion: "1.3"}},
		{
			name:    "server mode without key",
			tls:     TLSConfig{Mode: "server", CertFile: cert},
			wantErr: "keyFile is required",
		},
		{
			name:    "server mode with missing file",
			tls:     TLSConfig{Mode: "server", CertFile: cert, KeyFile: "/does/not/exist.pem"},
			wantErr: "keyFile:",
		},
		{
			name: "mutual mode",
			tls:  TLSConfig{Mode: "mutual", CertFile: cert, KeyFile: key, CAFile: ca, ClientAuthPolicy: "verify"},
		},
		{
			name:    "mutual mode without CA",
			tls:     TLSConfig{Mode: "mutual", CertFile: cert, KeyFile: key},
			wantErr: "caFile is required",
		},
		{
			name:    "mutual mode with bad policy",
			tls:     TLSConfig{Mode: "mutual", CertFile: cert, KeyFile: key, CAFile: ca, ClientAuthPolicy: "maybe"},
			wantErr: "invalid clientAuthPolicy: maybe",
		},
		{
			name:    "unknown mode",
			tls:     TLSConfig{Mode: "sometimes"},
			wantErr: "invalid TLS mode: sometimes",
		},
		{
			name:    "unsupported version",
			tls:     TLSConfig{Mode: "server", CertFile: cert, KeyFile: key, MinVersion: "1.0"},
			wantErr: "invalid TLS minVersion: 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestApplyTLSDefaults(t *testing.T) {
	cfg := &Config{Server: ServerConfig{TLS: TLSConfig{Mode: "mutual"}}}
	cfg.applyTLSDefaults()
	assert.Equal(t, "require", cfg.Server.TLS.ClientAuthPolicy)
	assert.Equal(t, "1.2", cfg.Server.TLS.MinVersion)

	cfg = &Config{Server: ServerConfig{TLS: TLSConfig{Mode: "disabled"}}}
	cfg.applyTLSDefaults()
	assert.Empty(t, cfg.Server.TLS.MinVersion)
}
