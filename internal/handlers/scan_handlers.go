package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"flexipay/internal/scanner"
	"flexipay/internal/services"
)

type ScanHandler struct {
	scanner *scanner.Scanner
	clock   services.Clock
	cfg     *services.Config
}

func NewScanHandler(sc *scanner.Scanner, clock services.Clock, cfg *services.Config) *ScanHandler {
	return &ScanHandler{scanner: sc, clock: clock, cfg: cfg}
}

// RunScan triggers a reminder/overdue sweep on demand. The periodic worker
// runs the same code on its own schedule; this endpoint exists for admins.
func (h *ScanHandler) RunScan(c echo.Context) error {
	result, err := h.scanner.Scan(c.Request().Context(), h.clock.Now(),
		h.cfg.ReminderWindowDays(), h.cfg.OverdueGraceDays())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
