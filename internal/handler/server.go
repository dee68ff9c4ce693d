package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patient-management-api/internal/middleware"
)

// NewEcho returns an echo instance with the serializer, validator, error
// handler and common middleware installed.
func NewEcho(log zerolog.Logger, limiter *middleware.RateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)
	// RealIP is the socket peer; forwarding headers are client-controlled
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(log))
	e.Use(middleware.Recovery(log))
	if limiter != nil {
		e.Use(middleware.RateLimitHTTP(limiter))
	}
	return e
}
