package config

import "time"

// Config represents the main application configuration structure.
// It contains all settings for the Klaxon paging portal: server settings,
// the upstream VictorOps API, incident feed caching, authorization, paging
// delivery and storage.
type Config struct {
	// HTTP server port (e.g., "3000")
	Port string

	// Application environment (e.g., "development", "production")
	Environment string

	// Logging level (e.g., "info", "debug", "warn", "error")
	LogLevel string

	// Upstream VictorOps (Splunk On-Call) API settings
	VictorOps VictorOpsConfig

	// Incident feed cache settings
	Feed FeedConfig

	// Authorization gate settings
	Auth AuthConfig

	// Paging delivery settings
	Paging PagingConfig

	// IRC (SAL) announcement settings
	IRC IRCConfig

	// Idempotency storage settings
	Storage StorageConfig
}

// VictorOpsConfig holds the upstream alerting API settings.
type VictorOpsConfig struct {
	// APIID and APIKey authenticate read calls
	APIID  string
	APIKey string

	// BaseURL is the public API root; empty uses the production default
	BaseURL string

	// CreateIncidentURL is the REST integration endpoint for new pages
	CreateIncidentURL string

	// AdminEmail identifies this instance's operator in the User-Agent
	AdminEmail string

	// TeamIDs filters incidents and on-call rotations; empty means all
	TeamIDs []string

	// EscalationPolicyIDs filters on-call resolution; empty means all
	EscalationPolicyIDs []string

	// Timeout bounds each upstream call
	Timeout time.Duration
}

// FeedConfig holds incident cache tuning.
type FeedConfig struct {
	// CacheTTL is how long the incident list is reused before a refresh
	CacheTTL time.Duration

	// RecencyWindow drops incidents older than this from the feed
	RecencyWindow time.Duration

	// BackoffInitial and BackoffMax bound the retry backoff after a
	// failed refresh
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// AuthConfig holds authorization gate settings.
type AuthConfig struct {
	// TrustedUsers is the static trust list of usernames allowed to page
	TrustedUsers []string

	// DirectoryURL optionally points at an HTTP group directory whose
	// members are also trusted
	DirectoryURL string

	// CASUserHeader and CASEmailHeader name the SSO proxy headers
	// carrying the caller identity
	CASUserHeader  string
	CASEmailHeader string
}

// PagingConfig holds delivery channel settings.
type PagingConfig struct {
	// WebhookURL optionally enables the chat webhook channel
	WebhookURL string

	// WebhookName names that channel in results (default "chat")
	WebhookName string

	// ChannelTimeout bounds each delivery attempt
	ChannelTimeout time.Duration

	// RetryDelay is the fixed delay before the single delivery retry
	RetryDelay time.Duration

	// IdempotencyTTL is how long a dispatched key suppresses resubmission
	IdempotencyTTL time.Duration
}

// IRCConfig holds the SAL tcpircbot announcement settings.
// Announcements are disabled when Host is empty.
type IRCConfig struct {
	Host string
	Port int
	Nick string
}

// ServerConfig represents server-related configuration settings from YAML.
type ServerConfig struct {
	// HTTP server port (e.g., "3000")
	Port string `yaml:"port"`

	// Application environment (e.g., "development", "production")
	Environment string `yaml:"environment"`

	// Logging level (e.g., "info", "debug", "warn", "error")
	LogLevel string `yaml:"log_level"`
}

// VictorOpsYAMLConfig mirrors VictorOpsConfig with YAML tags.
type VictorOpsYAMLConfig struct {
	APIID               string   `yaml:"api_id"`
	APIKey              string   `yaml:"api_key"`
	BaseURL             string   `yaml:"api_base_url"`
	CreateIncidentURL   string   `yaml:"create_incident_url"`
	AdminEmail          string   `yaml:"admin_email"`
	TeamIDs             []string `yaml:"team_ids"`
	EscalationPolicyIDs []string `yaml:"escalation_policy_ids"`

	// Timeout as a duration string (e.g., "10s")
	Timeout string `yaml:"timeout"`
}

// FeedYAMLConfig mirrors FeedConfig with duration strings.
type FeedYAMLConfig struct {
	CacheTTL       string `yaml:"cache_ttl"`
	RecencyWindow  string `yaml:"recency_window"`
	BackoffInitial string `yaml:"backoff_initial"`
	BackoffMax     string `yaml:"backoff_max"`
}

// AuthYAMLConfig mirrors AuthConfig with YAML tags.
type AuthYAMLConfig struct {
	TrustedUsers   []string `yaml:"trusted_users"`
	DirectoryURL   string   `yaml:"directory_url"`
	CASUserHeader  string   `yaml:"cas_user_header"`
	CASEmailHeader string   `yaml:"cas_email_header"`
}

// PagingYAMLConfig mirrors PagingConfig with duration strings.
type PagingYAMLConfig struct {
	WebhookURL     string `yaml:"webhook_url"`
	WebhookName    string `yaml:"webhook_name"`
	ChannelTimeout string `yaml:"channel_timeout"`
	RetryDelay     string `yaml:"retry_delay"`
	IdempotencyTTL string `yaml:"idempotency_ttl"`
}

// IRCYAMLConfig mirrors IRCConfig with YAML tags.
type IRCYAMLConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Nick string `yaml:"nick"`
}

// StorageConfig holds configuration for idempotency storage.
type StorageConfig struct {
	// Redis configuration
	Redis RedisYAMLConfig `yaml:"redis"`
}

// RedisYAMLConfig represents Redis configuration from YAML files.
type RedisYAMLConfig struct {
	// Whether Redis storage is enabled (true/false)
	Enabled bool `yaml:"enabled"`

	// Redis server address (e.g., "localhost:6379")
	Address string `yaml:"address"`

	// Redis password for authentication
	Password string `yaml:"password"`

	// Redis database number (0-15)
	Database int `yaml:"database"`

	// Key prefix for all Redis keys (e.g., "klaxon")
	KeyPrefix string `yaml:"key_prefix"`
}

// YAMLConfig represents the structure of the YAML configuration file.
// It defines the complete structure for configs/config.yaml.
type YAMLConfig struct {
	Server    ServerConfig        `yaml:"server"`
	VictorOps VictorOpsYAMLConfig `yaml:"victorops"`
	Feed      FeedYAMLConfig      `yaml:"feed"`
	Auth      AuthYAMLConfig      `yaml:"auth"`
	Paging    PagingYAMLConfig    `yaml:"paging"`
	IRC       IRCYAMLConfig       `yaml:"irc"`
	Storage   StorageConfig       `yaml:"storage"`
}
