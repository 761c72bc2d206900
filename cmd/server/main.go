package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"flexipay/internal/events"
	"flexipay/internal/handlers"
	authMiddleware "flexipay/internal/middleware"
	"flexipay/internal/notifications"
	"flexipay/internal/paylink"
	"flexipay/internal/repository"
	"flexipay/internal/scanner"
	"flexipay/internal/services"
	"flexipay/internal/status"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := services.NewConfig()
	clock := services.NewClock()

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}
	authClient, err := services.InitFirebase(context.Background(), credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Merchant API auth will reject all requests until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; without it summaries are uncached and order locking
	// is in-process only
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}

	store := repository.NewGormStore(db)
	bus := events.NewBus()

	dispatcher := notifications.NewDispatcher(services.NewEmailService(), store)
	dispatcher.Register(bus)

	var locker status.Locker
	if cache != nil {
		locker = cache
	}
	engine := status.NewEngine(store, bus, clock, locker)

	linkGen := paylink.NewGenerator(store, clock, paylink.Config{
		StandardGraceDays: cfg.StandardGraceDays(),
		ExtendedGraceDays: cfg.ExtendedGraceDays(),
		BaseURL:           cfg.BaseURL(),
	})

	midtransClient := services.NewMidtransService()
	checkout := services.NewCheckoutService(db, midtransClient)
	sweep := scanner.NewScanner(store, engine, linkGen, bus, dispatcher)

	// Create Echo instance
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	// Initialize handlers
	scheduleHandler := handlers.NewScheduleHandler(store)
	orderHandler := handlers.NewOrderHandler(store, cache)
	installmentHandler := handlers.NewInstallmentHandler(engine, cache)
	linkHandler := handlers.NewPaymentLinkHandler(store, linkGen, engine, checkout, midtransClient, cache, cfg.BaseURL())
	scanHandler := handlers.NewScanHandler(sweep, clock, cfg)

	// Public payment-link routes
	e.GET("/p/pay/:order/:number", linkHandler.PayInstallment)
	e.POST("/p/midtrans/callback", linkHandler.MidtransCallback)

	// Merchant API
	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth(authClient))

	api.POST("/products/:id/schedule", scheduleHandler.StoreSchedule)
	api.POST("/products/:id/schedule/recurring", scheduleHandler.StoreRecurringSchedule)
	api.GET("/products/:id/schedule", scheduleHandler.GetSchedule)

	api.POST("/orders", orderHandler.CreateOrder)
	api.GET("/orders/:id/summary", orderHandler.GetSummary)
	api.GET("/orders/:id/installments", orderHandler.ListInstallments)
	api.GET("/orders/:id/history", orderHandler.GetHistory)

	api.POST("/orders/:id/installments/:number/transition", installmentHandler.Transition)
	api.POST("/orders/:id/installments/:number/link", linkHandler.GenerateLink)

	api.POST("/scan", scanHandler.RunScan)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
