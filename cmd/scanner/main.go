package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"

	"flexipay/internal/events"
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

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

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

	sweep := scanner.NewScanner(store, engine, linkGen, bus, dispatcher)

	log.Println("Scanner worker started")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down scanner...")
		cancel()
	}()

	runOnce := func() {
		now := clock.Now()
		result, err := sweep.Scan(ctx, now, cfg.ReminderWindowDays(), cfg.OverdueGraceDays())
		if err != nil {
			log.Printf("Scan run failed: %v", err)
			return
		}
		for _, orderErr := range result.Errors {
			log.Printf("Order %d failed during scan: %s", orderErr.OrderID, orderErr.Message)
		}
	}

	// Run once on startup, then follow the schedule
	runOnce()

	for {
		wait := waitUntilNextRun(cfg, clock.Now())
		log.Printf("Next scan in %s", wait.Round(time.Second))
		select {
		case <-time.After(wait):
			runOnce()
		case <-ctx.Done():
			return
		}
	}
}

// waitUntilNextRun derives the pause before the next sweep, either from the
// SCAN_RRULE recurrence rule or from the fixed SCAN_INTERVAL
func waitUntilNextRun(cfg *services.Config, now time.Time) time.Duration {
	if ruleStr := cfg.ScanRRule(); ruleStr != "" {
		rule, err := rrule.StrToRRule(ruleStr)
		if err != nil {
			log.Printf("Invalid SCAN_RRULE %q, falling back to interval: %v", ruleStr, err)
		} else {
			next := rule.After(now, false)
			if !next.IsZero() {
				return next.Sub(now)
			}
		}
	}
	return cfg.ScanInterval()
}
