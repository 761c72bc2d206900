package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"flexipay/internal/paylink"
	"flexipay/internal/schedule"
	"flexipay/internal/status"
)

// CustomErrorHandler maps domain errors onto HTTP responses. Validation
// problems come back as 4xx with the concrete reason; anything unexpected is
// logged and hidden behind a generic 500.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	switch {
	case errors.Is(err, schedule.ErrInvalidSchedule):
		code = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, status.ErrUnknownStatus):
		code = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, status.ErrInvalidTransition):
		code = http.StatusConflict
		message = err.Error()
	case errors.Is(err, status.ErrInstallmentNotFound):
		code = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, paylink.ErrInvalidToken):
		code = http.StatusForbidden
		message = "payment link is invalid"
	case errors.Is(err, paylink.ErrLinkExpired):
		code = http.StatusGone
		message = "payment link has expired"
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = http.StatusNotFound
		message = "not found"
	default:
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok && msg != "" {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	if jsonErr := c.JSON(code, map[string]interface{}{"error": message}); jsonErr != nil {
		c.Logger().Error(jsonErr)
	}
}
