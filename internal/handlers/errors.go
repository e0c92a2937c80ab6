package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {"success": false, "error": msg}.
// Echo errors keep their status; service errors are mapped through apperror.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := apperror.MapErrorToStatus(err)
	msg := apperror.Message(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError && he == nil {
		logger.Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, echo.Map{"success": false, "error": msg})
	}
	if writeErr != nil {
		logger.Warnf("write error response: %v", writeErr)
	}
}
