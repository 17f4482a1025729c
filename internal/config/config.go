package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// Cache for configuration to avoid repeated file reads
	configCache *Config
	configOnce  sync.Once
)

// Load creates a new Config instance from YAML and environment variables.
// This is a convenience function that calls LoadWithFlags with nil flags.
func Load() *Config {
	return LoadWithFlags(nil)
}

// LoadCached creates a cached Config instance, loading it on first use.
func LoadCached() *Config {
	configOnce.Do(func() {
		configCache = LoadWithFlags(nil)
	})
	return configCache
}

// Flags defines the interface for command-line flag access.
// Only server settings are flag-overridable; everything else comes from
// YAML and KLAXON_* environment variables.
type Flags interface {
	GetPort() string
	GetEnvironment() string
	GetLogLevel() string
}

// LoadWithFlags creates a new Config instance by loading configuration from
// the YAML file and applying environment variable and command-line flag
// overrides.
//
// Configuration precedence (highest to lowest):
//  1. Command-line flags (server settings only)
//  2. Environment variables (KLAXON_* for application settings)
//  3. YAML configuration file
//  4. Default values
func LoadWithFlags(flgs Flags) *Config {
	yamlConfig := loadFromYAML()

	port := getEnv("PORT", yamlConfig.Server.Port)
	if port == "" {
		port = DefaultPort
	}
	if flgs != nil && flgs.GetPort() != "" {
		port = flgs.GetPort()
	}

	environment := getEnv("ENVIRONMENT", yamlConfig.Server.Environment)
	if environment == "" {
		environment = DefaultEnvironment
	}
	if flgs != nil && flgs.GetEnvironment() != "" {
		environment = flgs.GetEnvironment()
	}

	logLevel := getEnv("LOG_LEVEL", yamlConfig.Server.LogLevel)
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}
	if flgs != nil && flgs.GetLogLevel() != "" {
		logLevel = flgs.GetLogLevel()
	}

	// Redis configuration - support environment variables
	redisConfig := yamlConfig.Storage.Redis
	redisHost := getEnv("REDIS_HOST", "")
	redisPort := getEnv("REDIS_PORT", "")
	redisPassword := getEnv("REDIS_PASSWORD", redisConfig.Password)

	redisAddress := redisConfig.Address
	if redisHost != "" && redisPort != "" {
		redisAddress = redisHost + ":" + redisPort
	} else if redisHost != "" {
		redisAddress = redisHost + ":6379" // Default port
	}

	return &Config{
		Port:        port,
		Environment: environment,
		LogLevel:    logLevel,
		VictorOps: VictorOpsConfig{
			APIID:             getEnv("KLAXON_VO_API_ID", yamlConfig.VictorOps.APIID),
			APIKey:            getEnv("KLAXON_VO_API_KEY", yamlConfig.VictorOps.APIKey),
			BaseURL:           getEnv("KLAXON_VO_API_BASE_URL", yamlConfig.VictorOps.BaseURL),
			CreateIncidentURL: getEnv("KLAXON_VO_CREATE_INCIDENT_URL", yamlConfig.VictorOps.CreateIncidentURL),
			AdminEmail:        getEnv("KLAXON_ADMIN_CONTACT_EMAIL", yamlConfig.VictorOps.AdminEmail),
			TeamIDs: getEnvList("KLAXON_TEAM_IDS_FILTER",
				yamlConfig.VictorOps.TeamIDs),
			EscalationPolicyIDs: getEnvList("KLAXON_ESC_POLICY_IDS_FILTER",
				yamlConfig.VictorOps.EscalationPolicyIDs),
			Timeout: parseDuration(yamlConfig.VictorOps.Timeout, DefaultUpstreamTimeout),
		},
		Feed: FeedConfig{
			CacheTTL: getEnvSeconds("KLAXON_INCIDENT_LIST_CACHE_TTL_SECONDS",
				parseDuration(yamlConfig.Feed.CacheTTL, DefaultCacheTTL)),
			RecencyWindow: getEnvMinutes("KLAXON_INCIDENT_LIST_RECENCY_MINUTES",
				parseDuration(yamlConfig.Feed.RecencyWindow, DefaultRecencyWindow)),
			BackoffInitial: parseDuration(yamlConfig.Feed.BackoffInitial, DefaultBackoffInitial),
			BackoffMax:     parseDuration(yamlConfig.Feed.BackoffMax, DefaultBackoffMax),
		},
		Auth: AuthConfig{
			TrustedUsers:   getEnvList("KLAXON_TRUSTED_USERS", yamlConfig.Auth.TrustedUsers),
			DirectoryURL:   getEnv("KLAXON_TRUST_DIRECTORY_URL", yamlConfig.Auth.DirectoryURL),
			CASUserHeader:  withDefault(getEnv("KLAXON_CAS_AUTH_HEADER", yamlConfig.Auth.CASUserHeader), DefaultCASUserHeader),
			CASEmailHeader: withDefault(getEnv("KLAXON_CAS_EMAIL_HEADER", yamlConfig.Auth.CASEmailHeader), DefaultCASEmailHeader),
		},
		Paging: PagingConfig{
			WebhookURL:     getEnv("KLAXON_WEBHOOK_URL", yamlConfig.Paging.WebhookURL),
			WebhookName:    withDefault(yamlConfig.Paging.WebhookName, DefaultWebhookName),
			ChannelTimeout: parseDuration(yamlConfig.Paging.ChannelTimeout, DefaultChannelTimeout),
			RetryDelay:     parseDuration(yamlConfig.Paging.RetryDelay, DefaultRetryDelay),
			IdempotencyTTL: parseDuration(yamlConfig.Paging.IdempotencyTTL, DefaultIdempotencyTTL),
		},
		IRC: IRCConfig{
			Host: getEnv("KLAXON_TCPIRCBOT_HOST", yamlConfig.IRC.Host),
			Port: getEnvInt("KLAXON_TCPIRCBOT_PORT", yamlConfig.IRC.Port),
			Nick: withDefault(yamlConfig.IRC.Nick, "klaxon"),
		},
		Storage: StorageConfig{
			Redis: RedisYAMLConfig{
				Enabled:   redisConfig.Enabled,
				Address:   redisAddress,
				Password:  redisPassword,
				Database:  redisConfig.Database,
				KeyPrefix: withDefault(redisConfig.KeyPrefix, "klaxon"),
			},
		},
	}
}

func loadFromYAML() *YAMLConfig {
	config := &YAMLConfig{}
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		return config
	}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return config
	}
	return config
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvList reads a comma-separated list from the environment.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			list = append(list, part)
		}
	}
	return list
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvSeconds reads a whole-second count from the environment.
func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseFloat(value, 64); err == nil && n > 0 {
			return time.Duration(n * float64(time.Second))
		}
	}
	return fallback
}

// getEnvMinutes reads a whole-minute count from the environment.
func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseFloat(value, 64); err == nil && n > 0 {
			return time.Duration(n * float64(time.Minute))
		}
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
