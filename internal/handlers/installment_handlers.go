package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"flexipay/internal/models"
	"flexipay/internal/schedule"
	"flexipay/internal/services"
	"flexipay/internal/status"
)

type InstallmentHandler struct {
	engine *status.Engine
	cache  *services.RedisCache
}

func NewInstallmentHandler(engine *status.Engine, cache *services.RedisCache) *InstallmentHandler {
	return &InstallmentHandler{engine: engine, cache: cache}
}

// Transition applies a manual status change to one installment and returns
// the recomputed order summary
func (h *InstallmentHandler) Transition(c echo.Context) error {
	orderID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}
	number, err := parseIntParam(c, "number")
	if err != nil {
		return err
	}

	var req struct {
		Status        string  `json:"status"`
		TransactionID *string `json:"transaction_id"`
		PaymentDate   string  `json:"payment_date"`
		Note          string  `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	opts := &status.TransitionOptions{
		TransactionID: req.TransactionID,
		Note:          req.Note,
	}
	if req.PaymentDate != "" {
		paymentDate, err := time.Parse(schedule.DateLayout, req.PaymentDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payment_date, want "+schedule.DateLayout)
		}
		opts.PaymentDate = &paymentDate
	}

	summary, err := h.engine.Transition(c.Request().Context(), orderID, number,
		models.InstallmentStatus(req.Status), opts)
	if err != nil {
		return err
	}

	h.invalidateSummary(c.Request().Context(), orderID)

	return c.JSON(http.StatusOK, summary)
}

func (h *InstallmentHandler) invalidateSummary(ctx context.Context, orderID uint) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(ctx, summaryCacheKey(orderID)); err != nil {
		log.Printf("Failed to invalidate summary cache for order %d: %v", orderID, err)
	}
}
