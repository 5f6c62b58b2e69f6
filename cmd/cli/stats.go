package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/axellelanca/clickstream/cmd"
	"github.com/axellelanca/clickstream/internal/database"
	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/repository"
	"github.com/axellelanca/clickstream/internal/services"
)

var statsOwnerFlag string

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Long:  `Get total, daily and per-location click statistics for a short code owned by --owner.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	StatsCmd.Flags().StringVar(&statsOwnerFlag, "owner", "", "ID of the user owning the link")
	StatsCmd.MarkFlagRequired("owner")

	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(cobraCmd *cobra.Command, args []string) {
	shortCode := args[0]

	db, err := database.Open(cmd.Cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	analyticsService := services.NewAnalyticsService(repository.NewLinkRepository(db), repository.NewClickRepository(db))

	analytics, err := analyticsService.GetAnalytics(context.Background(), shortCode, statsOwnerFlag)
	if err != nil {
		if errors.Is(err, customerrors.ErrShortCodeNotFound) {
			fmt.Printf("Error: Short code '%s' not found for owner '%s'\n", shortCode, statsOwnerFlag)
		} else {
			fmt.Printf("Error retrieving statistics: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Statistics for short code: %s\n", shortCode)
	fmt.Printf("Total clicks: %d\n", analytics.TotalClicks)

	if len(analytics.DailyClicks) > 0 {
		fmt.Println("Clicks per day:")
		for _, day := range analytics.DailyClicks {
			fmt.Printf("  %s  %d\n", day.Date, day.Count)
		}
	}

	if len(analytics.GeoData) > 0 {
		fmt.Println("Clicks per location:")
		for _, loc := range analytics.GeoData {
			fmt.Printf("  %-20s %-20s %d\n", orUnknown(loc.Country), orUnknown(loc.City), loc.Count)
		}
	}
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}
