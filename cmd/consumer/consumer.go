package consumer

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/axellelanca/clickstream/cmd"
	"github.com/axellelanca/clickstream/internal/database"
	"github.com/axellelanca/clickstream/internal/logging"
	"github.com/axellelanca/clickstream/internal/repository"
	"github.com/axellelanca/clickstream/internal/workers"
)

// RunConsumerCmd runs a standalone click consumer. Several of them can join the
// same consumer group to share the click stream.
var RunConsumerCmd = &cobra.Command{
	Use:   "run-consumer",
	Short: "Consumes click events: geolocates and stores them.",
	Long: `This command joins the configured Redis consumer group, enriches every
click with geolocation, stores it, and periodically redelivers messages that
were left unacknowledged. It requires analytics.queue=redis.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		cfg := cmd.Cfg
		logCloser := logging.Setup(cfg)
		defer logCloser.Close()

		if cfg.Analytics.Queue != "redis" {
			log.Fatalf("FATAL: run-consumer needs analytics.queue=redis, got %q", cfg.Analytics.Queue)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := database.Open(cfg)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer database.Close(db)

		rdb, err := cmd.OpenRedis(ctx, cfg)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer rdb.Close()

		clickQueue, err := cmd.OpenClickQueue(ctx, cfg, rdb)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}

		locator, geoCloser := cmd.OpenGeoLocator(cfg, rdb)
		defer geoCloser.Close()

		consumer := workers.NewClickConsumer(clickQueue, locator, repository.NewClickRepository(db), cmd.ConsumerConfig(cfg))

		g, gctx := errgroup.WithContext(ctx)
		cmd.StartIngestion(gctx, g, cfg, consumer)

		if err := g.Wait(); err != nil {
			log.Printf("Consumer stopped with error: %v", err)
			return
		}
		log.Println("Consumer stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunConsumerCmd)
}
