package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/axellelanca/clickstream/cmd"
	"github.com/axellelanca/clickstream/internal/cache"
	"github.com/axellelanca/clickstream/internal/database"
	"github.com/axellelanca/clickstream/internal/repository"
	"github.com/axellelanca/clickstream/internal/services"
)

var (
	longURLFlag string
	ownerFlag   string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a short URL from a long URL.",
	Long: `This command shortens the provided long URL on behalf of an owner and prints the generated short code.

Example:
  clickstream create --url="https://www.google.com/search?q=go+lang" --owner=42`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg := cmd.Cfg
		ctx := context.Background()

		// Validation basique du format de l'URL, avant toute connexion
		if err := services.ValidateURL(longURLFlag); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		db, err := database.Open(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close(db)

		rdb, err := cmd.OpenRedis(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to configure Redis: %v", err)
		}
		defer rdb.Close()

		// Initialiser les repositories et services nécessaires
		linkRepo := repository.NewLinkRepository(db)
		allocator := services.NewShortCodeAllocator(cache.NewCodeSet(rdb, cfg.CacheTimeout()), linkRepo)
		urlCache := cache.NewURLCache(rdb, cfg.URLTTL(), cfg.CacheTimeout())
		linkService := services.NewLinkService(linkRepo, allocator, urlCache, cmd.NewQuotaChecker(cfg), noClicks{})

		link, err := linkService.Shorten(ctx, longURLFlag, ownerFlag)
		if err != nil {
			fmt.Printf("Error: failed to create short link: %v\n", err)
			os.Exit(1)
		}

		baseURL := cfg.Server.BaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}
		fmt.Printf("Short URL created successfully:\n")
		fmt.Printf("Code: %s\n", link.ShortCode)
		fmt.Printf("Full URL: %s\n", services.ShortURL(baseURL, link.ShortCode))
	},
}

// noClicks satisfies services.ClickPublisher for commands that never redirect.
type noClicks struct{}

func (noClicks) Publish(string, string) {}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&ownerFlag, "owner", "", "ID of the user owning the link")

	CreateCmd.MarkFlagRequired("url")
	CreateCmd.MarkFlagRequired("owner")

	cmd.RootCmd.AddCommand(CreateCmd)
}
