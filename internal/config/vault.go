package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"resumatch/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address" validate:"omitempty,url"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets defines where to find secrets in Vault. Empty paths are skipped.
type VaultSecrets struct {
	// APIKeys holds a "keys" entry of comma-separated server API keys.
	APIKeys string `mapstructure:"apiKeys"`
	// GeminiKey holds an "api_key" entry.
	GeminiKey string `mapstructure:"geminiKey"`
	// S3 holds "access_key" and "secret_key" entries for the resume bucket.
	S3 string `mapstructure:"s3"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client and checks that the server answers.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", vaultConfig.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", vaultConfig.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return parseKVv2(secret.Data, path)
}

func parseKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue accepts the number shapes the JSON decoder may produce.
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		// json.Number and friends
		if s, ok := v.(fmt.Stringer); ok {
			return parseVersionValue(s.String(), path)
		}
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// String returns a string entry of the secret.
func (s *VaultSecret) String(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	return str, nil
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	value, err := secret.String(key)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", path, err)
	}
	vc.logger.Debug("String secret retrieved from Vault", "path", path, "key", key, "masked_value", mask(value))
	return value, nil
}

func mask(value string) string {
	switch {
	case len(value) > 8:
		return value[:4] + "****" + value[len(value)-4:]
	case value != "":
		return "****"
	default:
		return ""
	}
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config.
// Vault values replace anything that came from files or the environment.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "vault unavailable", err)
	}
	return client.Apply(config)
}

// Apply reads every configured secret path and copies the values into config.
func (vc *VaultClient) Apply(config *Config) error {
	paths := config.Vault.Secrets

	if paths.APIKeys != "" {
		keys, err := vc.GetStringSecret(paths.APIKeys, "keys")
		if err != nil {
			return fmt.Errorf("loading server API keys: %w", err)
		}
		config.Server.APIKeys = splitKeys(keys)
	}

	if paths.GeminiKey != "" {
		key, err := vc.GetStringSecret(paths.GeminiKey, "api_key")
		if err != nil {
			return fmt.Errorf("loading insight API key: %w", err)
		}
		config.Insight.APIKey = key
	}

	if paths.S3 != "" {
		secret, err := vc.GetSecretV2(paths.S3)
		if err != nil {
			return fmt.Errorf("loading S3 credentials: %w", err)
		}
		if err := applyS3Secret(&config.Worker.S3, secret); err != nil {
			return fmt.Errorf("loading S3 credentials: %w", err)
		}
	}
	return nil
}

func applyS3Secret(s3 *S3Config, secret *VaultSecret) error {
	access, err := secret.String("access_key")
	if err != nil {
		return err
	}
	secretKey, err := secret.String("secret_key")
	if err != nil {
		return err
	}
	s3.AccessKey = access
	s3.SecretKey = secretKey
	return nil
}
