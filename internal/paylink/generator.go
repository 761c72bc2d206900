package paylink

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"flexipay/internal/models"
	"flexipay/internal/services"
)

var (
	ErrInvalidToken = errors.New("invalid payment link token")
	ErrLinkExpired  = errors.New("payment link expired")
)

// tokenBytes gives a 256-bit token, well past the point where collisions or
// guessing matter
const tokenBytes = 32

// Store persists payment links keyed by (order, installment)
type Store interface {
	UpsertLink(ctx context.Context, link *models.PaymentLink) error
	GetLink(ctx context.Context, orderID uint, number int) (*models.PaymentLink, error)
}

// Config holds the grace periods and the public base URL. Values come from
// the environment config; the generator never reads globals itself.
type Config struct {
	StandardGraceDays int
	ExtendedGraceDays int
	BaseURL           string
}

// Generator produces signed, time-limited payment links for installments.
// Regenerating a link overwrites the previous one, so the old token stops
// validating immediately.
type Generator struct {
	store Store
	clock services.Clock
	cfg   Config
}

func NewGenerator(store Store, clock services.Clock, cfg Config) *Generator {
	return &Generator{store: store, clock: clock, cfg: cfg}
}

// Generate creates (or replaces) the payment link for one installment.
//
// Expiry rule: overdue installments get now + extended grace; an installment
// already past due at generation time gets now + standard grace; otherwise
// the link lives until due date + standard grace.
func (g *Generator) Generate(ctx context.Context, orderID uint, inst *models.Installment, isOverdue bool) (*models.PaymentLink, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := g.clock.Now()
	var expiresAt = inst.DueDate.AddDate(0, 0, g.cfg.StandardGraceDays)
	switch {
	case isOverdue:
		expiresAt = now.AddDate(0, 0, g.cfg.ExtendedGraceDays)
	case now.After(inst.DueDate):
		expiresAt = now.AddDate(0, 0, g.cfg.StandardGraceDays)
	}

	link := &models.PaymentLink{
		OrderID:           orderID,
		InstallmentNumber: inst.Number,
		Token:             token,
		Amount:            inst.Amount,
		ExpiresAt:         expiresAt,
		URL:               fmt.Sprintf("%s/p/pay/%d/%d?token=%s", g.cfg.BaseURL, orderID, inst.Number, token),
	}

	if err := g.store.UpsertLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Validate checks that token is the current link for the installment and has
// not expired. A link is still valid at the exact expiry instant.
func (g *Generator) Validate(ctx context.Context, orderID uint, number int, token string) error {
	link, err := g.store.GetLink(ctx, orderID, number)
	if err != nil {
		return err
	}
	if link == nil {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(link.Token), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	if g.clock.Now().After(link.ExpiresAt) {
		return ErrLinkExpired
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
