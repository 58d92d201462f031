package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"resumatch/internal/errors"
	"resumatch/internal/skills"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "RESUMATCH"

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Environment Variables (RESUMATCH_INSIGHT_APIKEY, etc.)
// 3. Config File values
// 4. Default values - Lowest priority
type Config struct {
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Insight       InsightConfig       `mapstructure:"insight"`
	Server        ServerConfig        `mapstructure:"server"`
	Worker        WorkerConfig        `mapstructure:"worker"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AnalysisConfig controls the matching core.
type AnalysisConfig struct {
	Weights      skills.Weights  `mapstructure:"weights"`
	TaxonomyFile string          `mapstructure:"taxonomyFile"`
	Keyphrase    KeyphraseConfig `mapstructure:"keyphrase"`
}

// KeyphraseConfig selects how candidate phrases are pulled from a job
// description before synonym expansion.
type KeyphraseConfig struct {
	Strategy string `mapstructure:"strategy" validate:"oneof=ngram frequency"`
	MaxN     int    `mapstructure:"maxN" validate:"gte=0,lte=6"`
	TopK     int    `mapstructure:"topK" validate:"gte=0"`
}

// InsightConfig holds the generative insight provider configuration
type InsightConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	Provider       string               `mapstructure:"provider" validate:"oneof=gemini"`
	Model          string               `mapstructure:"model" validate:"required"`
	APIKey         string               `mapstructure:"apiKey"`
	Timeout        time.Duration        `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries     int                  `mapstructure:"maxRetries" validate:"gte=0,lte=10"`
	Temperature    float32              `mapstructure:"temperature" validate:"gte=0,lte=2"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	Prompts        PromptFiles          `mapstructure:"prompts"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold" validate:"gte=0,lte=1"`
}

// PromptFiles points at optional template overrides for the insight prompts.
type PromptFiles struct {
	ResumeQualityFile string `mapstructure:"resumeQualityFile" validate:"omitempty,file"`
	FitBoosterFile    string `mapstructure:"fitBoosterFile" validate:"omitempty,file"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize" validate:"gt=0"`

	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string `mapstructure:"mode"`             // TLS mode: "disabled", "server", "mutual"
	CertFile         string `mapstructure:"certFile"`         // Server certificate file (PEM)
	KeyFile          string `mapstructure:"keyFile"`          // Server private key file (PEM)
	CAFile           string `mapstructure:"caFile"`           // CA certificate for client verification (mutual mode)
	MinVersion       string `mapstructure:"minVersion"`       // Minimum TLS version: "1.2", "1.3"
	ClientAuthPolicy string `mapstructure:"clientAuthPolicy"` // "require", "request", "verify"
	AutoReload       bool   `mapstructure:"autoReload"`       // Reload certificate files when they change on disk
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin" validate:"gte=0"`
	BurstCapacity  int  `mapstructure:"burstCapacity" validate:"gte=0"`
	ByIP           bool `mapstructure:"byIP"`
	ByAPIKey       bool `mapstructure:"byAPIKey"`
}

// WorkerConfig holds queue worker configuration
type WorkerConfig struct {
	AMQPURL         string        `mapstructure:"amqpURL" validate:"omitempty,url"`
	Queue           string        `mapstructure:"queue" validate:"required"`
	Exchange        string        `mapstructure:"exchange" validate:"required"`
	Concurrency     int           `mapstructure:"concurrency" validate:"gte=1,lte=256"`
	Prefetch        int           `mapstructure:"prefetch" validate:"gte=1"`
	DownloadRetries int           `mapstructure:"downloadRetries" validate:"gte=0,lte=10"`
	JobTimeout      time.Duration `mapstructure:"jobTimeout" validate:"gt=0"`
	S3              S3Config      `mapstructure:"s3"`
}

// S3Config locates the bucket that holds uploaded resumes.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"accessKey"`
	SecretKey    string `mapstructure:"secretKey"`
	UsePathStyle bool   `mapstructure:"usePathStyle"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats" validate:"min=1"`
	MaxFileSize      int64    `mapstructure:"maxFileSize" validate:"gt=0"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	SampleRate      float64          `mapstructure:"sampleRate" validate:"gte=0,lte=1"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from a .env file, environment variables and
// a config file. An explicit configFile replaces the search path lookup.
func LoadConfig(configFile string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment from .env")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/resumatch")
		v.AddConfigPath("/etc/resumatch/")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := ApplyVaultSecrets(&config, bootstrapLogger(config.App.LogLevel)); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// bootstrapLogger serves the steps that run before the application logger exists.
func bootstrapLogger(level string) *errors.Logger {
	logger, err := errors.New(level)
	if err != nil {
		return errors.Discard()
	}
	return logger
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags first, then the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	for _, cat := range skills.Categories {
		if w := c.Analysis.Weights.For(cat); !(w > 0) {
			return fmt.Errorf("analysis weight for %s must be positive, got %v", cat, w)
		}
	}

	if c.Insight.Enabled && c.Insight.APIKey == "" {
		return fmt.Errorf("insight API key is required when insights are enabled (set %s_INSIGHT_APIKEY)", EnvPrefix)
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.Analysis.TaxonomyFile != "" {
		if _, err := os.Stat(c.Analysis.TaxonomyFile); err != nil {
			return fmt.Errorf("taxonomy file: %w", err)
		}
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}
	return nil
}

// Taxonomy returns the configured taxonomy, or the built-in one.
func (c *Config) Taxonomy() (*skills.Taxonomy, error) {
	if c.Analysis.TaxonomyFile == "" {
		return skills.DefaultTaxonomy(), nil
	}
	return skills.LoadTaxonomyFile(c.Analysis.TaxonomyFile)
}

// KeyphraseExtractor builds the configured keyphrase strategy. The n-gram
// length never drops below the taxonomy's longest synonym key.
func (c *Config) KeyphraseExtractor(tax *skills.Taxonomy) skills.KeyphraseExtractor {
	kp := c.Analysis.Keyphrase
	if kp.Strategy == "frequency" {
		return skills.FrequencyExtractor{TopK: kp.TopK}
	}
	n := kp.MaxN
	if n < tax.MaxSynonymWords() {
		n = tax.MaxSynonymWords()
	}
	return skills.NGramExtractor{MaxN: n}
}

// NewAnalyzer builds the matching pipeline described by the analysis section.
func (c *Config) NewAnalyzer() (*skills.Analyzer, error) {
	tax, err := c.Taxonomy()
	if err != nil {
		return nil, err
	}
	return skills.NewAnalyzer(tax, skills.WithKeyphraseExtractor(c.KeyphraseExtractor(tax))), nil
}
