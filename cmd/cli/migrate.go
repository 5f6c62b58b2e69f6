package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/axellelanca/clickstream/cmd"
	"github.com/axellelanca/clickstream/internal/database"
)

// MigrateCmd represents the 'migrate' command
// This command handles database schema creation and updates
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Executes database migrations to create or update tables.",
	Long: `This command connects to the configured database (SQLite or PostgreSQL)
and executes GORM automatic migrations to create the 'short_urls' and 'clicks'
tables based on the Go models.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		db, err := database.Open(cmd.Cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close(db)

		// Creates tables and indexes from the struct definitions; new columns are added in place.
		if err := database.Migrate(db); err != nil {
			log.Fatalf("%v", err)
		}

		fmt.Println("Database migrations executed successfully.")
	},
}

func init() {
	// Register this command with the root command so it can be executed via CLI
	cmd.RootCmd.AddCommand(MigrateCmd)
}
