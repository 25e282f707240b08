package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"fila-system/config"
	"fila-system/internal/handlers"
	"fila-system/internal/notify"
	"fila-system/internal/realtime"
	"fila-system/internal/services"
	"fila-system/internal/store"
	_ "fila-system/migrations"
	"fila-system/models"
	"fila-system/monitoring"
	"fila-system/security"
	"fila-system/utils"
)

func Start() error {
	// Load configuration; a partially configured process must not start.
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	app := pocketbase.New()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Stores backed by the PocketBase collections
	queueStore := store.NewPBQueueStore(app)
	serviceLog := store.NewPBServiceLog(app)

	// Initialize services
	statsService := services.NewStatsService(serviceLog, redisClient, cfg.StatsWindow, cfg.StatsCacheTTL)

	var provider notify.SMSProvider = notify.NewStubProvider()
	if cfg.SMSEnabled {
		provider = notify.NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	notifier := notify.NewNotifier(provider, cfg.NotifyDelay)

	hub := realtime.NewHub()
	queueService := services.NewQueueService(queueStore, serviceLog, statsService, hub, notifier, redisClient, cfg)

	// Realtime subscribers: PubNub push and the queue length gauge.
	publisher := realtime.NewPubNubPublisher(pn, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return queueService.EffectiveAverageMs(ctx)
	})
	hub.Subscribe(publisher.OnQueueChanged)
	hub.Subscribe(func(entries []models.QueueEntry) {
		monitoring.SetQueueLength(len(entries))
	})

	// Initialize handlers
	limiter := security.NewRateLimiter(redisClient, cfg.JoinRateLimit, cfg.JoinRateWindow)
	filaHandler := handlers.NewFilaHandler(app, queueService, statsService, limiter, cfg)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background tasks
	monitor := monitoring.NewMonitor(queueStore)
	go monitor.Run(ctx)
	if cfg.EnableMetrics {
		go monitoring.StartOpsServer(cfg.MetricsPort, redisClient)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		e.Router.GET("/fila", filaHandler.List)
		e.Router.POST("/fila", filaHandler.Join)
		e.Router.DELETE("/fila/{id}", filaHandler.Leave)
		e.Router.GET("/fila/stats", filaHandler.Stats)
		e.Router.POST("/fila/proximo", filaHandler.DequeueNext)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	return app.Start()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
