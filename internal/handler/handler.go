// Package handler exposes the patient service over HTTP with echo.
package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"patient-management-api/internal/service"
)

type PatientService interface {
	List(ctx context.Context) ([]service.PatientResponse, error)
	Get(ctx context.Context, id string) (*service.PatientResponse, error)
	Create(ctx context.Context, req service.PatientRequest) (*service.PatientResponse, error)
	Update(ctx context.Context, id string, req service.PatientRequest) (*service.PatientResponse, error)
	Delete(ctx context.Context, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc PatientService
	db  Pinger
	log zerolog.Logger
}

func New(svc PatientService, db Pinger, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, db: db, log: log}
}

// RegisterRoutes mounts the patient routes on e. The write middleware
// (bearer auth when configured) guards create, update and delete only.
func (h *Handler) RegisterRoutes(e *echo.Echo, write ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health)

	g := e.Group("/patient")
	g.GET("/getPatients", h.ListPatients)
	g.GET("/:id", h.GetPatient)

	w := g.Group("", write...)
	w.POST("/createPatient", h.CreatePatient)
	w.PUT("/updatePatient/:id", h.UpdatePatient)
	w.DELETE("/deletePatient/:id", h.DeletePatient)
}

func (h *Handler) ListPatients(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var req service.PatientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	var req service.PatientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Health(c echo.Context) error {
	if err := h.db.Ping(c.Request().Context()); err != nil {
		h.log.Error().Err(err).Msg("health check: database unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "up"})
}

func patientID(c echo.Context) (string, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid patient id: "+raw)
	}
	return id.String(), nil
}

func bindAndValidate(c echo.Context, req *service.PatientRequest) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "validation failed").SetInternal(err)
	}
	return nil
}
