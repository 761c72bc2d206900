package services

import (
	"os"
	"strconv"
	"time"
)

// Config reads settings from the environment with sane defaults. Core
// components never touch the environment directly; grace periods and windows
// are passed in from here so tests can pick their own values.
type Config struct{}

// NewConfig creates an env-backed config provider
func NewConfig() *Config {
	return &Config{}
}

// Get returns the value for key, or def when unset or empty
func (c *Config) Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetInt returns the integer value for key, or def when unset or malformed
func (c *Config) GetInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetDuration returns the duration value for key, or def when unset or malformed
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// StandardGraceDays is how long a payment link stays valid past the due date
func (c *Config) StandardGraceDays() int {
	return c.GetInt("PAYLINK_STANDARD_GRACE_DAYS", 3)
}

// ExtendedGraceDays is the link validity window granted to overdue installments
func (c *Config) ExtendedGraceDays() int {
	return c.GetInt("PAYLINK_EXTENDED_GRACE_DAYS", 7)
}

// ReminderWindowDays is how many days before the due date a reminder goes out
func (c *Config) ReminderWindowDays() int {
	return c.GetInt("REMINDER_WINDOW_DAYS", 3)
}

// OverdueGraceDays is the tolerance past the due date before a pending
// installment flips to overdue
func (c *Config) OverdueGraceDays() int {
	return c.GetInt("OVERDUE_GRACE_DAYS", 3)
}

// BaseURL is the public base for payment link URLs
func (c *Config) BaseURL() string {
	return c.Get("BASE_URL", "http://localhost:8080")
}

// ScanInterval is the scanner's tick interval when no SCAN_RRULE is set
func (c *Config) ScanInterval() time.Duration {
	return c.GetDuration("SCAN_INTERVAL", 24*time.Hour)
}

// ScanRRule optionally schedules scans by an RFC 5545 recurrence rule
func (c *Config) ScanRRule() string {
	return c.Get("SCAN_RRULE", "")
}
