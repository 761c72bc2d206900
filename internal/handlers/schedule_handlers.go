package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"flexipay/internal/repository"
	"flexipay/internal/schedule"
)

type ScheduleHandler struct {
	store *repository.GormStore
}

func NewScheduleHandler(store *repository.GormStore) *ScheduleHandler {
	return &ScheduleHandler{store: store}
}

// StoreSchedule validates and stores a product's installment template
func (h *ScheduleHandler) StoreSchedule(c echo.Context) error {
	productID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Entries []schedule.RawEntry `json:"entries"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	entries, err := schedule.Validate(req.Entries)
	if err != nil {
		return err
	}

	if err := h.store.ReplaceSchedule(c.Request().Context(), productID, entries); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// StoreRecurringSchedule builds a schedule from a recurrence rule and stores it
func (h *ScheduleHandler) StoreRecurringSchedule(c echo.Context) error {
	productID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		StartDate   string `json:"start_date"`
		RRule       string `json:"rrule"`
		Count       int    `json:"count"`
		TotalAmount string `json:"total_amount"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	start, err := time.Parse(schedule.DateLayout, req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date, want "+schedule.DateLayout)
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid total_amount")
	}

	entries, err := schedule.GenerateRecurring(start, req.RRule, req.Count, total, req.Description)
	if err != nil {
		return err
	}

	if err := h.store.ReplaceSchedule(c.Request().Context(), productID, entries); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

// GetSchedule returns a product's installment template
func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	productID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.store.GetSchedule(c.Request().Context(), productID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}
