package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"flexipay/internal/events"
	"flexipay/internal/notifications"
	"flexipay/internal/paylink"
	"flexipay/internal/repository"
	"flexipay/internal/scanner"
	"flexipay/internal/services"
	"flexipay/internal/status"
)

// scanctl runs a one-off reminder/overdue sweep or regenerates a single
// payment link from the shell, mainly for operations and debugging.
func main() {
	nowStr := flag.String("now", "", "Scan as of this instant (RFC3339, default: current time)")
	reminderDays := flag.Int("reminder_days", 0, "Reminder window in days (default: from env)")
	graceDays := flag.Int("grace_days", 0, "Overdue grace period in days (default: from env)")
	regenOrder := flag.Uint("regen_order", 0, "Regenerate the payment link for this order instead of scanning")
	regenNumber := flag.Int("regen_number", 0, "Installment number for -regen_order")
	regenOverdue := flag.Bool("regen_overdue", false, "Issue the regenerated link with the extended grace period")

	flag.Parse()

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := services.InitDB(dsn)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}

	cfg := services.NewConfig()
	clock := services.NewClock()
	store := repository.NewGormStore(db)

	now := clock.Now()
	if *nowStr != "" {
		now, err = time.Parse(time.RFC3339, *nowStr)
		if err != nil {
			log.Fatalf("Invalid -now value, want RFC3339: %v", err)
		}
	}

	linkGen := paylink.NewGenerator(store, services.FixedClock{T: now}, paylink.Config{
		StandardGraceDays: cfg.StandardGraceDays(),
		ExtendedGraceDays: cfg.ExtendedGraceDays(),
		BaseURL:           cfg.BaseURL(),
	})

	ctx := context.Background()

	if *regenOrder != 0 {
		inst, err := store.GetInstallment(ctx, *regenOrder, *regenNumber)
		if err != nil {
			log.Fatalf("Failed to load installment: %v", err)
		}
		if inst == nil {
			log.Fatalf("Order %d has no installment %d", *regenOrder, *regenNumber)
		}
		link, err := linkGen.Generate(ctx, *regenOrder, inst, *regenOverdue)
		if err != nil {
			log.Fatalf("Failed to regenerate link: %v", err)
		}
		fmt.Printf("New link for order %d installment %d:\n%s\nexpires %s\n",
			*regenOrder, *regenNumber, link.URL, link.ExpiresAt.Format(time.RFC3339))
		return
	}

	bus := events.NewBus()
	dispatcher := notifications.NewDispatcher(services.NewEmailService(), store)
	dispatcher.Register(bus)
	engine := status.NewEngine(store, bus, services.FixedClock{T: now}, nil)
	sweep := scanner.NewScanner(store, engine, linkGen, bus, dispatcher)

	reminder := cfg.ReminderWindowDays()
	if *reminderDays > 0 {
		reminder = *reminderDays
	}
	grace := cfg.OverdueGraceDays()
	if *graceDays > 0 {
		grace = *graceDays
	}

	result, err := sweep.Scan(ctx, now, reminder, grace)
	if err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("Scanned %d orders as of %s\n", result.ScannedOrders, now.Format(time.RFC3339))
	fmt.Printf("Due soon: %d, flipped overdue: %d, errors: %d\n",
		len(result.DueSoon), len(result.Overdue), len(result.Errors))
	for _, item := range result.Overdue {
		fmt.Printf("  overdue: order %d installment %d (%s due %s)\n",
			item.OrderID, item.InstallmentNumber, item.Amount, item.DueDate.Format("2006-01-02"))
	}
}
