package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"flexipay/internal/models"
	"flexipay/internal/paylink"
	"flexipay/internal/repository"
	"flexipay/internal/services"
	"flexipay/internal/status"
)

type PaymentLinkHandler struct {
	store    *repository.GormStore
	links    *paylink.Generator
	engine   *status.Engine
	checkout *services.CheckoutService
	gateway  *services.MidtransService
	cache    *services.RedisCache
	baseURL  string
}

func NewPaymentLinkHandler(store *repository.GormStore, links *paylink.Generator, engine *status.Engine,
	checkout *services.CheckoutService, gateway *services.MidtransService, cache *services.RedisCache, baseURL string) *PaymentLinkHandler {
	return &PaymentLinkHandler{
		store:    store,
		links:    links,
		engine:   engine,
		checkout: checkout,
		gateway:  gateway,
		cache:    cache,
		baseURL:  baseURL,
	}
}

// GenerateLink (re)issues the payment link for one installment. The previous
// token, if any, stops working immediately.
func (h *PaymentLinkHandler) GenerateLink(c echo.Context) error {
	orderID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}
	number, err := parseIntParam(c, "number")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	inst, err := h.store.GetInstallment(ctx, orderID, number)
	if err != nil {
		return err
	}
	if inst == nil {
		return echo.NewHTTPError(http.StatusNotFound, "installment not found")
	}

	isOverdue := inst.Status == models.InstallmentStatusOverdue || c.QueryParam("overdue") == "true"
	link, err := h.links.Generate(ctx, orderID, inst, isOverdue)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, link)
}

// PayInstallment is the public payment-link landing endpoint. It validates
// the token, then starts (or resumes) a gateway checkout for the installment
// through a sub-order.
func (h *PaymentLinkHandler) PayInstallment(c echo.Context) error {
	orderID, err := parseUintParam(c, "order")
	if err != nil {
		return err
	}
	number, err := parseIntParam(c, "number")
	if err != nil {
		return err
	}
	token := c.QueryParam("token")

	ctx := c.Request().Context()
	if err := h.links.Validate(ctx, orderID, number, token); err != nil {
		return err
	}

	order, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	inst, err := h.store.GetInstallment(ctx, orderID, number)
	if err != nil {
		return err
	}
	if inst == nil {
		return echo.NewHTTPError(http.StatusNotFound, "installment not found")
	}
	if inst.Status == models.InstallmentStatusCompleted {
		return echo.NewHTTPError(http.StatusBadRequest, "installment is already paid")
	}
	if inst.Status == models.InstallmentStatusCancelled {
		return echo.NewHTTPError(http.StatusBadRequest, "installment is cancelled")
	}

	forceNew := c.QueryParam("force") == "true"
	result, err := h.checkout.InitiateCheckout(order, inst, forceNew, h.baseURL+"/p/finish")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to start checkout: "+err.Error())
	}

	// A gateway charge is now in flight; the installment sits in processing
	// until the callback settles or fails it. Repeat visits on an existing
	// session are a no-op here.
	if _, err := h.engine.Transition(ctx, orderID, number, models.InstallmentStatusProcessing,
		&status.TransitionOptions{Note: "gateway checkout started"}); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":        result.Token,
		"redirect_url": result.RedirectURL,
		"sub_order":    result.SubOrderNumber,
		"is_existing":  result.IsExisting,
	})
}

// MidtransCallback handles gateway payment notifications. A settled
// transaction completes the sub-order and, through the status engine, marks
// the parent installment completed.
func (h *PaymentLinkHandler) MidtransCallback(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	gatewayOrderID, _ := payload["order_id"].(string)
	transactionStatus, _ := payload["transaction_status"].(string)
	fraudStatus, _ := payload["fraud_status"].(string)
	statusCode, _ := payload["status_code"].(string)
	grossAmount, _ := payload["gross_amount"].(string)
	signatureKey, _ := payload["signature_key"].(string)

	ctx := c.Request().Context()

	// Keep the raw notification for reconciliation regardless of outcome
	metadata, _ := json.Marshal(payload)
	if err := h.store.CreateGatewayCallback(ctx, &models.GatewayCallback{
		PaymentGateway: models.PaymentGatewayMidtrans,
		GatewayOrderID: gatewayOrderID,
		Metadata:       metadata,
	}); err != nil {
		log.Printf("Failed to record gateway callback for %s: %v", gatewayOrderID, err)
	}

	if !h.gateway.VerifySignature(gatewayOrderID, statusCode, grossAmount, signatureKey) {
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	subOrder, err := h.store.GetSubOrderByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return err
	}
	if subOrder == nil {
		return echo.NewHTTPError(http.StatusNotFound, "sub-order not found")
	}

	switch {
	case transactionStatus == "settlement" || (transactionStatus == "capture" && fraudStatus == "accept"):
		if err := h.completeSubOrder(ctx, subOrder, payload); err != nil {
			return err
		}
	case transactionStatus == "deny" || transactionStatus == "expire" || transactionStatus == "cancel":
		subOrder.Status = models.SubOrderStatusCancelled
		subOrder.IsActive = false
		if err := h.store.SaveSubOrder(ctx, subOrder); err != nil {
			return err
		}
		// A failed charge stays retryable: failed can move back to pending or
		// straight into a new checkout. A stale callback that cannot apply is
		// logged, not bounced back to the gateway.
		if _, err := h.engine.Transition(ctx, subOrder.ParentOrderID, subOrder.InstallmentNumber,
			models.InstallmentStatusFailed, &status.TransitionOptions{Note: "gateway " + transactionStatus}); err != nil {
			log.Printf("Could not mark installment %d of order %d failed: %v",
				subOrder.InstallmentNumber, subOrder.ParentOrderID, err)
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentLinkHandler) completeSubOrder(ctx context.Context, subOrder *models.SubOrder, payload map[string]interface{}) error {
	if subOrder.Status == models.SubOrderStatusCompleted {
		return nil
	}

	subOrder.Status = models.SubOrderStatusCompleted
	subOrder.IsActive = false
	if err := h.store.SaveSubOrder(ctx, subOrder); err != nil {
		return err
	}

	// Settlement completes from processing, never directly from pending. If
	// the checkout-time transition did not land, the installment passes
	// through processing here.
	if _, err := h.engine.Transition(ctx, subOrder.ParentOrderID, subOrder.InstallmentNumber,
		models.InstallmentStatusProcessing, nil); err != nil {
		log.Printf("Could not move installment %d of order %d to processing: %v",
			subOrder.InstallmentNumber, subOrder.ParentOrderID, err)
	}

	opts := &status.TransitionOptions{Note: "paid via payment link"}
	if txID, ok := payload["transaction_id"].(string); ok && txID != "" {
		opts.TransactionID = &txID
	}
	if settled, ok := payload["settlement_time"].(string); ok && settled != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", settled); err == nil {
			opts.PaymentDate = &t
		}
	}

	if _, err := h.engine.Transition(ctx, subOrder.ParentOrderID, subOrder.InstallmentNumber,
		models.InstallmentStatusCompleted, opts); err != nil {
		return err
	}

	if h.cache != nil {
		if err := h.cache.Delete(ctx, summaryCacheKey(subOrder.ParentOrderID)); err != nil {
			log.Printf("Failed to invalidate summary cache for order %d: %v", subOrder.ParentOrderID, err)
		}
	}
	return nil
}
