package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"flexipay/internal/models"
	"flexipay/internal/repository"
	"flexipay/internal/services"
)

type OrderHandler struct {
	store *repository.GormStore
	cache *services.RedisCache
}

func NewOrderHandler(store *repository.GormStore, cache *services.RedisCache) *OrderHandler {
	return &OrderHandler{store: store, cache: cache}
}

// CreateOrder materializes an order and its installments from a product's
// schedule. Entries already past due at order time still start out pending;
// the scanner decides when they become overdue.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	var req struct {
		ProductID     uint   `json:"product_id"`
		CustomerName  string `json:"customer_name"`
		CustomerEmail string `json:"customer_email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	if req.ProductID == 0 || req.CustomerEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id and customer_email are required")
	}

	ctx := c.Request().Context()
	entries, err := h.store.GetSchedule(ctx, req.ProductID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product has no installment schedule")
	}

	total := decimal.Zero
	installments := make([]models.Installment, 0, len(entries))
	for _, entry := range entries {
		total = total.Add(entry.Amount)
		installments = append(installments, models.Installment{
			Number:  entry.InstallmentNumber,
			Amount:  entry.Amount,
			DueDate: entry.DueDate,
			Status:  models.InstallmentStatusPending,
		})
	}

	order := models.Order{
		ProductID:     req.ProductID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Status:        models.OrderStatusPending,
		TotalAmount:   total,
	}

	if err := h.store.CreateOrderWithInstallments(ctx, &order, installments); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"order":   order,
		"summary": models.ComputeSummary(order.ID, installments),
	})
}

// GetSummary returns the recomputed payment summary for an order, cached
// briefly when Redis is available
func (h *OrderHandler) GetSummary(c echo.Context) error {
	orderID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	compute := func() (models.OrderPaymentSummary, error) {
		order, err := h.store.GetOrder(ctx, orderID)
		if err != nil {
			return models.OrderPaymentSummary{}, err
		}
		if order == nil {
			return models.OrderPaymentSummary{}, echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		installments, err := h.store.ListInstallments(ctx, orderID)
		if err != nil {
			return models.OrderPaymentSummary{}, err
		}
		return models.ComputeSummary(orderID, installments), nil
	}

	var summary models.OrderPaymentSummary
	if h.cache != nil {
		summary, err = services.GetOrSet(h.cache, ctx, summaryCacheKey(orderID), 5*time.Minute, compute)
	} else {
		summary, err = compute()
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, summary)
}

// ListInstallments returns the order's installments in schedule order
func (h *OrderHandler) ListInstallments(c echo.Context) error {
	orderID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	installments, err := h.store.ListInstallments(c.Request().Context(), orderID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, installments)
}

// GetHistory returns the order's append-only audit trail
func (h *OrderHandler) GetHistory(c echo.Context) error {
	orderID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	logs, err := h.store.ListLogs(c.Request().Context(), orderID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, logs)
}
