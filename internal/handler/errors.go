package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patient-management-api/internal/service"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// fail maps service errors to status codes. Anything unrecognised is a 500
// with a generic message; the cause goes to the log.
func (h *Handler) fail(c echo.Context, err error) error {
	var (
		dup *service.DuplicateEmailError
		nf  *service.PatientNotFoundError
		bad *service.InvalidDateError
	)
	switch {
	case errors.As(err, &dup):
		return echo.NewHTTPError(http.StatusConflict, dup.Error())
	case errors.As(err, &nf):
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
	case errors.As(err, &bad):
		return echo.NewHTTPError(http.StatusBadRequest, bad.Error())
	}

	rid, _ := c.Get("request_id").(string)
	h.log.Error().Err(err).
		Str("request_id", rid).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// ErrorHandler renders every error as {"error": "..."}.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := errorBody{Error: "internal server error"}

		var (
			ve *ValidationError
			he *echo.HTTPError
		)
		switch {
		case errors.As(err, &ve):
			code = http.StatusBadRequest
			body = errorBody{Error: "validation failed", Fields: ve.Fields}
		case errors.As(err, &he):
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			} else {
				body.Error = http.StatusText(code)
			}
		default:
			log.Error().Err(err).Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, body)
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}
