package commands

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/upgrowplan/upgrowplan/config"
	"github.com/upgrowplan/upgrowplan/internal/constants"
	"github.com/upgrowplan/upgrowplan/internal/logger"
	"github.com/upgrowplan/upgrowplan/pkg/api/v1/client"
	"github.com/upgrowplan/upgrowplan/pkg/types/jobs"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagConfig        = "config"
	flagTimeout       = "timeout"
	flagLogLevel      = "log-level"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// cfg holds the resolved configuration. PersistentPreRunE sets this.
	cfg = config.Default()
	// kinds resolves --kind values
	kinds *jobs.Registry

	serverAddress string
	configFile    string
	timeout       time.Duration
	logLevel      string
)

// initClient initializes the API client
func initClient() error {
	opts := client.DefaultOptions()
	opts.BaseURL = cfg.Server.Address
	opts.Timeout = cfg.ClientTimeout()
	opts.AuthToken = cfg.Server.AuthToken
	if cfg.Client.Language != "" {
		opts.Language = cfg.Client.Language
	}

	var err error
	apiClient, err = client.NewClient(opts)
	return err
}

// loadDotEnv exports the variables of an optional .env file. Variables already set are kept.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setup prepares logging, configuration and the API client for a command run
func setup(cmd *cobra.Command) error {
	// LOG_LEVEL may come from .env, so it is loaded before the logger
	dotEnvErr := loadDotEnv()
	logger.InitializeAndConfigure(logLevel)
	if dotEnvErr != nil {
		logger.Warnf("Could not load .env file: %v", dotEnvErr)
	}

	if err := loadConfig(cmd); err != nil {
		return err
	}
	logger.Debugf("Upgrowplan server address: %s", cfg.Server.Address)

	return initClient()
}

// loadConfig resolves the configuration with precedence flag > env > file > default
func loadConfig(cmd *cobra.Command) error {
	if !cmd.Flags().Changed(flagConfig) {
		configFile = os.Getenv(constants.EnvConfigFile)
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed(flagServerAddress) {
		loaded.Server.Address = serverAddress
	}
	if cmd.Flags().Changed(flagTimeout) {
		loaded.Client.TimeoutMs = int(timeout / time.Millisecond)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	registry, err := loaded.Registry()
	if err != nil {
		return err
	}

	cfg = loaded
	kinds = registry
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", "", "Address of the Upgrowplan job service (env: UPGROWPLAN_SERVER_ADDRESS)")
	RootCmd.PersistentFlags().StringVar(&configFile, flagConfig, "", "Path of a YAML config file (env: UPGROWPLAN_CONFIG)")
	RootCmd.PersistentFlags().DurationVar(&timeout, flagTimeout, 30*time.Second, "Per request timeout")
	RootCmd.PersistentFlags().StringVar(&logLevel, flagLogLevel, "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")

	RootCmd.AddCommand(GetJobsCmd())
	RootCmd.AddCommand(GetSandboxCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "upgrowplan",
	Short: "Upgrowplan CLI - submit and watch research and synthesis jobs",
	Long: `Upgrowplan CLI submits long running research, synthesis and plan jobs to the
Upgrowplan backends and polls them until they complete, fail or need adjustment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// registry returns the configured kinds, falling back to the defaults before PersistentPreRunE ran
func registry() *jobs.Registry {
	if kinds == nil {
		kinds, _ = jobs.NewRegistry()
	}
	return kinds
}
