package config

import "time"

// Default configuration values
const (
	// DefaultPort is the default HTTP server port
	DefaultPort = "3000"

	// DefaultEnvironment is the default deployment environment
	DefaultEnvironment = "development"

	// DefaultLogLevel is the default logging level
	DefaultLogLevel = "info"
)

// Valid environment values
const (
	ValidEnvironmentDevelopment = "development"
	ValidEnvironmentProduction  = "production"
)

// Valid log level values
const (
	ValidLogLevelDebug = "debug"
	ValidLogLevelInfo  = "info"
	ValidLogLevelWarn  = "warn"
	ValidLogLevelError = "error"
)

// Default upstream and feed behavior
const (
	// DefaultUpstreamTimeout bounds each VictorOps API call
	DefaultUpstreamTimeout = 10 * time.Second

	// DefaultCacheTTL is how long the incident list is reused
	DefaultCacheTTL = 60 * time.Second

	// DefaultRecencyWindow drops incidents older than this
	DefaultRecencyWindow = 60 * time.Minute

	// DefaultBackoffInitial and DefaultBackoffMax bound the refresh
	// backoff after upstream failures
	DefaultBackoffInitial = 2 * time.Second
	DefaultBackoffMax     = 60 * time.Second
)

// Default paging behavior
const (
	// DefaultChannelTimeout bounds each paging channel attempt
	DefaultChannelTimeout = 10 * time.Second

	// DefaultRetryDelay is the fixed delay before the single retry
	DefaultRetryDelay = 2 * time.Second

	// DefaultIdempotencyTTL is how long an idempotency key stays claimed
	DefaultIdempotencyTTL = 24 * time.Hour

	// DefaultWebhookName labels the chat webhook channel in results
	DefaultWebhookName = "chat"
)

// Default identity header names, as set by the CAS SSO proxy.
const (
	DefaultCASUserHeader  = "CAS-User"
	DefaultCASEmailHeader = "X-CAS-Mail"
)
