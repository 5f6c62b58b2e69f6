package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/axellelanca/clickstream/cmd"
	"github.com/axellelanca/clickstream/internal/api"
	"github.com/axellelanca/clickstream/internal/cache"
	"github.com/axellelanca/clickstream/internal/database"
	"github.com/axellelanca/clickstream/internal/logging"
	"github.com/axellelanca/clickstream/internal/repository"
	"github.com/axellelanca/clickstream/internal/services"
	"github.com/axellelanca/clickstream/internal/workers"
)

var withConsumerFlag bool

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the URL shortener API and the click pipeline.",
	Long: `This command initializes the database and Redis, configures the API,
starts the click publishers and, unless --consumer=false, the click consumer
with its pending message monitor, then serves HTTP until SIGINT or SIGTERM.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg := cmd.Cfg
		logCloser := logging.Setup(cfg)
		defer logCloser.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Initialiser la base de données
		db, err := database.Open(cfg)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			log.Fatalf("FATAL: %v", err)
		}

		rdb, err := cmd.OpenRedis(ctx, cfg)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer rdb.Close()

		// Initialiser les repositories
		linkRepo := repository.NewLinkRepository(db)
		clickRepo := repository.NewClickRepository(db)
		log.Println("Repositories initialized.")

		clickQueue, err := cmd.OpenClickQueue(ctx, cfg, rdb)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}

		dispatcher := workers.NewClickDispatcher(clickQueue, cfg.Analytics.BufferSize, cfg.ProcessTimeout())
		dispatcher.Start(cfg.Analytics.PublisherWorkers)
		log.Printf("Click buffer initialized with %d slots, %d publisher(s) started.",
			cfg.Analytics.BufferSize, cfg.Analytics.PublisherWorkers)

		// Initialiser les services métiers
		allocator := services.NewShortCodeAllocator(cache.NewCodeSet(rdb, cfg.CacheTimeout()), linkRepo)
		urlCache := cache.NewURLCache(rdb, cfg.URLTTL(), cfg.CacheTimeout())
		linkService := services.NewLinkService(linkRepo, allocator, urlCache, cmd.NewQuotaChecker(cfg), dispatcher)
		analyticsService := services.NewAnalyticsService(linkRepo, clickRepo)
		log.Println("Services initialized.")

		g, gctx := errgroup.WithContext(ctx)

		// The in-memory queue only exists inside this process, so it always needs a local consumer.
		if withConsumerFlag || cfg.Analytics.Queue == "memory" {
			locator, geoCloser := cmd.OpenGeoLocator(cfg, rdb)
			defer geoCloser.Close()

			consumer := workers.NewClickConsumer(clickQueue, locator, clickRepo, cmd.ConsumerConfig(cfg))
			cmd.StartIngestion(gctx, g, cfg, consumer)
		}

		var createLimiter gin.HandlerFunc
		if cfg.RateLimit.Enabled {
			createLimiter, err = api.NewCreateLimiter(rdb, cfg.RateLimit.Rate)
			if err != nil {
				log.Fatalf("FATAL: %v", err)
			}
		}
		if cfg.Auth.JWTSecret == "" {
			log.Println("WARNING: auth.jwt_secret is empty, every /api/v1 request will be rejected.")
		}

		// Configurer le routeur Gin et les handlers API.
		router := gin.Default()
		api.SetupRoutes(router, linkService, analyticsService, api.RouteConfig{
			BaseURL:       cfg.Server.BaseURL,
			JWTSecret:     []byte(cfg.Auth.JWTSecret),
			CreateLimiter: createLimiter,
		})
		log.Println("API routes configured.")

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:              serverAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			log.Printf("Starting server on %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		})

		// Gère l'arrêt propre du serveur (graceful shutdown).
		g.Go(func() error {
			<-gctx.Done()
			log.Println("Shutdown signal received. Stopping server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		err = g.Wait()

		// No more redirects can arrive; push the buffered clicks to the queue.
		dispatcher.Close()

		if err != nil {
			log.Printf("Server stopped with error: %v", err)
			return
		}
		log.Println("Server stopped cleanly.")
	},
}

func init() {
	RunServerCmd.Flags().BoolVar(&withConsumerFlag, "consumer", true, "Also run the click consumer in this process")
	cmd.RootCmd.AddCommand(RunServerCmd)
}
