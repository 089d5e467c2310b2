// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvServerAddress is the base URL of the job service
	EnvServerAddress = "UPGROWPLAN_SERVER_ADDRESS"

	// EnvConfigFile is the path of the YAML configuration file
	EnvConfigFile = "UPGROWPLAN_CONFIG"

	// EnvPollInterval is the delay between status polls, as a Go duration (e.g. "5s")
	EnvPollInterval = "UPGROWPLAN_POLL_INTERVAL"

	// EnvMaxAttempts is the maximum number of status polls per job
	EnvMaxAttempts = "UPGROWPLAN_MAX_ATTEMPTS"

	// EnvAuthToken is the bearer token sent to the job service
	EnvAuthToken = "UPGROWPLAN_AUTH_TOKEN"

	// EnvLogLevel is the log level (debug, info, warn, error)
	EnvLogLevel = "LOG_LEVEL"
)
