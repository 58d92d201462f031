package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values that viper cannot express as plain defaults.
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyInsightKeyFallback()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks normalizes the key list. Keys from the
// environment arrive as one comma-separated value or as untrimmed parts.
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv(EnvPrefix + "_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitKeys(apiKeysEnv)
		}
		return
	}
	c.Server.APIKeys = splitKeys(strings.Join(c.Server.APIKeys, ","))
}

func splitKeys(s string) []string {
	var keys []string
	for _, key := range strings.Split(s, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// applyInsightKeyFallback accepts the provider's conventional variable.
func (c *Config) applyInsightKeyFallback() {
	if c.Insight.APIKey == "" {
		c.Insight.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	}

	var set []string
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, EnvPrefix+"_") {
			set = append(set, name)
		}
	}
	if len(set) > 0 {
		log.Printf("[CONFIG] Environment overrides: %s", strings.Join(set, ", "))
	}
}
