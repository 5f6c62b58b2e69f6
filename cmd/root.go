package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/axellelanca/clickstream/internal/config"
	"github.com/spf13/cobra"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, run-consumer, create, stats, migrate) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "clickstream",
	Short: "A URL shortener with asynchronous click analytics",
	Long: `A URL shortener that redirects short codes, records every click through a
durable queue, enriches clicks with geolocation and serves per-link analytics.`,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Set up configuration initialization to run before any command executes
	cobra.OnInitialize(initConfig)

	// Commands like 'run-server', 'create', 'stats', 'migrate' register themselves
	// via their own init() functions to avoid import cycles.
}

// initConfig loads the application configuration before every command.
func initConfig() {
	var err error

	// Load configuration from file, environment variables, and defaults
	Cfg, err = config.LoadConfig()
	if err != nil {
		// A missing file is handled by LoadConfig; anything reaching here is a broken config.
		log.Fatalf("FATAL: Problem loading configuration: %v", err)
	}
}
