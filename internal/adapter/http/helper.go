package http

import (
	"net/http"
	"strconv"
	"strings"

	"p2p-lending/internal/domain/errs"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const HeaderUserID = "Ax-User-Id"

// callerID reads the caller identity header. ok is false once the error
// response has been written.
func callerID(c echo.Context) (string, bool, error) {
	id := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
	if id == "" {
		return "", false, c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: "missing " + HeaderUserID})
	}
	if !reHex32.MatchString(id) {
		return "", false, c.JSON(http.StatusUnauthorized, ErrorResponse{Detail: "invalid " + HeaderUserID})
	}
	return id, true, nil
}

// bindValid binds and validates req. ok is false once the error response
// has been written.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Detail: "validation failed",
			Fields: ToFieldErrors(err),
		})
	}
	return true, nil
}

// queryLimit parses ?limit=, falling back to def on absent or bad input.
func queryLimit(c echo.Context, def, max int) int {
	n, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// fail maps a usecase error to its HTTP response. Unexpected errors are
// logged and hidden.
func fail(c echo.Context, log *zap.Logger, err error) error {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		fields := errs.FieldsOf(err)
		if len(fields) == 0 {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
		}
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "validation failed", Fields: fieldList(fields)})
	case errs.KindInsufficientFunds:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
	case errs.KindNotFound:
		return c.JSON(http.StatusNotFound, ErrorResponse{Detail: err.Error()})
	case errs.KindIllegalTransition:
		return c.JSON(http.StatusConflict, ErrorResponse{Detail: err.Error()})
	default:
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "internal error"})
	}
}
