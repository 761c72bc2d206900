package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"flexipay/internal/services"
)

// emailtest sends a single message through the configured SMTP settings to
// verify delivery before pointing the notification dispatcher at them.
func main() {
	to := flag.String("to", "", "Recipient address (mandatory)")
	flag.Parse()

	if *to == "" {
		log.Fatal("Usage: emailtest -to <address>")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	emailService := services.NewEmailService()
	err := emailService.SendEmail([]string{*to}, "flexipay SMTP test",
		"If you can read this, outbound email is configured correctly.")
	if err != nil {
		log.Fatalf("Send failed: %v", err)
	}

	log.Printf("Test email sent to %s", *to)
}
