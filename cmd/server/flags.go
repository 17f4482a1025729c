package main

import (
	"flag"
	"fmt"
	"runtime"
	"strings"

	"github.com/wikimedia/klaxon/internal/config"
	"github.com/wikimedia/klaxon/internal/version"
)

// Default values for server configuration
const (
	DefaultPort        = config.DefaultPort
	DefaultEnvironment = config.DefaultEnvironment
	DefaultLogLevel    = config.DefaultLogLevel
)

// Valid values for validation
const (
	ValidEnvironmentDevelopment = config.ValidEnvironmentDevelopment
	ValidEnvironmentProduction  = config.ValidEnvironmentProduction

	ValidLogLevelDebug = config.ValidLogLevelDebug
	ValidLogLevelInfo  = config.ValidLogLevelInfo
	ValidLogLevelWarn  = config.ValidLogLevelWarn
	ValidLogLevelError = config.ValidLogLevelError
)

// Help and version text
const (
	AppName        = "Klaxon"
	AppDescription = "An emergency paging portal backed by VictorOps (Splunk On-Call)"
)

// ServerFlags holds all command-line flags for the Klaxon server.
// Only server settings are flag-configurable; the upstream API, feed,
// authorization and paging settings come from YAML and KLAXON_* environment
// variables so deployments stay GitOps-friendly.
type ServerFlags struct {
	// HTTP server port number
	Port string
	// Deployment environment (development/production)
	Environment string
	// Logging verbosity level (debug/info/warn/error)
	LogLevel string

	// Show help information and exit
	Help bool
	// Show version information and exit
	Version bool
}

// parseFlags parses command-line flags and returns a ServerFlags struct.
// This function sets up all available command-line options with their default
// values and descriptions, then parses the command line arguments.
func parseFlags() *ServerFlags {
	f := &ServerFlags{}

	// Server configuration flags
	flag.StringVar(&f.Port, "port", DefaultPort,
		fmt.Sprintf("Server port number (default: %s)", DefaultPort))
	flag.StringVar(&f.Environment, "env", DefaultEnvironment,
		fmt.Sprintf("Deployment environment: %s, %s (default: %s)",
			ValidEnvironmentDevelopment, ValidEnvironmentProduction, DefaultEnvironment))
	flag.StringVar(&f.LogLevel, "log-level", DefaultLogLevel,
		fmt.Sprintf("Log level: %s, %s, %s, %s (default: %s)",
			ValidLogLevelDebug, ValidLogLevelInfo, ValidLogLevelWarn, ValidLogLevelError, DefaultLogLevel))

	// General flags
	flag.BoolVar(&f.Help, "help", false, "Show help information and exit")
	flag.BoolVar(&f.Help, "h", false, "Show help information and exit (short form)")
	flag.BoolVar(&f.Version, "version", false, "Show version information and exit")
	flag.BoolVar(&f.Version, "v", false, "Show version information and exit (short form)")

	// Parse command-line arguments
	flag.Parse()

	return f
}

// showHelp displays help information for the Klaxon server, documenting the
// available flags and where the rest of the configuration lives.
func (f *ServerFlags) showHelp() {
	fmt.Printf("%s - %s\n", AppName, AppDescription)
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  klaxon [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  Server Configuration:")
	fmt.Println("    -port string")
	fmt.Println("          Server port (default: 3000)")
	fmt.Println("    -env string")
	fmt.Println("          Environment: development, production (default: development)")
	fmt.Println("    -log-level string")
	fmt.Println("          Log level: debug, info, warn, error (default: info)")
	fmt.Println()
	fmt.Println("  Application Settings:")
	fmt.Println("    The upstream API, incident feed, authorization and paging are")
	fmt.Println("    configured via configs/config.yaml and KLAXON_* environment")
	fmt.Println("    variables. Secrets (API keys) should come from the environment.")
	fmt.Println()
	fmt.Println("  General:")
	fmt.Println("    -help, -h")
	fmt.Println("          Show this help information")
	fmt.Println("    -version, -v")
	fmt.Println("          Show version information")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with default settings")
	fmt.Println("  klaxon")
	fmt.Println()
	fmt.Println("  # Start in production mode with custom log level")
	fmt.Println("  klaxon -env production -log-level warn")
	fmt.Println()
	fmt.Println("  # Start on custom port")
	fmt.Println("  klaxon -port 8080")
}

// showVersion displays version and build information for the Klaxon server.
func (f *ServerFlags) showVersion() {
	fmt.Printf("%s %s\n", AppName, version.GetVersion())
	fmt.Printf("Build info: %s\n", version.GetBuildInfo())
	fmt.Printf("Go version: %s\n", runtime.Version())
}

// validate performs validation of all command-line flags.
// Returns an error if any validation fails, with a descriptive error message.
func (f *ServerFlags) validate() error {
	// Validate port
	if f.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	// Validate environment
	validEnvs := []string{ValidEnvironmentDevelopment, ValidEnvironmentProduction}
	validEnv := false
	for _, env := range validEnvs {
		if f.Environment == env {
			validEnv = true
			break
		}
	}
	if !validEnv {
		return fmt.Errorf("invalid environment: %s (must be one of: %s)", f.Environment, strings.Join(validEnvs, ", "))
	}

	// Validate log level
	validLevels := []string{ValidLogLevelDebug, ValidLogLevelInfo, ValidLogLevelWarn, ValidLogLevelError}
	validLevel := false
	for _, level := range validLevels {
		if f.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", f.LogLevel, strings.Join(validLevels, ", "))
	}

	return nil
}

// Interface methods for config package
// These methods implement the config.Flags interface to allow the config
// package to access flag values without depending on the specific flag
// implementation.

// GetPort returns the configured server port number.
func (f *ServerFlags) GetPort() string {
	return f.Port
}

// GetEnvironment returns the configured deployment environment.
func (f *ServerFlags) GetEnvironment() string {
	return f.Environment
}

// GetLogLevel returns the configured logging verbosity level.
func (f *ServerFlags) GetLogLevel() string {
	return f.LogLevel
}
