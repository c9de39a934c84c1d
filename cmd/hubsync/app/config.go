package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/hubsync/pkg/constants"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// EntitiesFile declares organizations and entity types
	EntitiesFile string

	// Hub connection
	HubURL       string
	HubKey       string
	HubSecret    string
	HubAPIPath   string
	HubRateLimit float64
	HubRateBurst int
	HubTimeout   time.Duration
	HubRetries   int

	// Correlation store
	StoreDriver string // sqlite, postgres or memory
	StoreDSN    string

	// Sync behavior
	BatchSize    int
	Concurrency  int
	SyncInterval time.Duration
	SyncTimeout  time.Duration

	// Run server
	ListenAddr string
	APIKey     string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (HUBSYNC_ prefixed, e.g. HUBSYNC_HUB_URL)
// 3. .env files
// 4. Config file (~/.hubsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	// Set up Viper for environment variables
	viper.SetEnvPrefix("hubsync")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults()

	// Try to read config file if it exists
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".hubsync")
		}
	}

	// Read config file (a missing file is fine)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	// Build config from viper
	config := &Config{
		// Global flags (may be overridden by cobra flags later)
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		// Config file
		ConfigFile:   viper.ConfigFileUsed(),
		EntitiesFile: viper.GetString("entities"),

		// Hub connection
		HubURL:       viper.GetString("hub.url"),
		HubKey:       viper.GetString("hub.key"),
		HubSecret:    viper.GetString("hub.secret"),
		HubAPIPath:   viper.GetString("hub.api_path"),
		HubRateLimit: viper.GetFloat64("hub.rate_limit"),
		HubRateBurst: viper.GetInt("hub.rate_burst"),
		HubTimeout:   viper.GetDuration("hub.timeout"),
		HubRetries:   viper.GetInt("hub.max_retries"),

		// Correlation store
		StoreDriver: viper.GetString("store.driver"),
		StoreDSN:    viper.GetString("store.dsn"),

		// Sync behavior
		BatchSize:    viper.GetInt("sync.batch_size"),
		Concurrency:  viper.GetInt("sync.concurrency"),
		SyncInterval: viper.GetDuration("sync.interval"),
		SyncTimeout:  viper.GetDuration("sync.timeout"),

		// Run server
		ListenAddr: viper.GetString("server.addr"),
		APIKey:     viper.GetString("server.api_key"),

		// Logging configuration
		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// setDefaults registers the defaults of every setting.
func setDefaults() {
	viper.SetDefault("entities", "hubsync.entities.yaml")
	viper.SetDefault("hub.api_path", "/api/v2")
	viper.SetDefault("hub.rate_limit", constants.DefaultRateLimit)
	viper.SetDefault("hub.rate_burst", constants.BurstSize)
	viper.SetDefault("hub.timeout", constants.DefaultHTTPTimeout)
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "hubsync.db")
	viper.SetDefault("sync.batch_size", constants.DefaultBatchSize)
	viper.SetDefault("sync.concurrency", constants.MaxConcurrentOrganizations)
	viper.SetDefault("sync.interval", constants.DefaultSyncInterval)
	viper.SetDefault("sync.timeout", constants.SyncTimeout)
	viper.SetDefault("server.addr", ":8080")
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		// godotenv.Load never overrides variables that are already set
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
