package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinema-seats/reservation-engine/internal/engine"
)

// ReservationHandler exposes the Reserve and Confirm-Payment actions
// over HTTP. It is a thin pass-through: request binding and status-code
// translation only, no business logic.
type ReservationHandler struct {
	Engine *engine.Engine
}

// NewReservationHandler constructs a ReservationHandler over eng.
func NewReservationHandler(eng *engine.Engine) *ReservationHandler {
	return &ReservationHandler{Engine: eng}
}

type createReservationRequest struct {
	UserID  string   `json:"userId"`
	SeatIDs []string `json:"seatIds"`
}

// CreateReservation handles POST /v1/sessions/:id/reservations.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}

	resp, err := h.Engine.Reserve(c.Request().Context(), engine.ReserveInput{
		UserID:         req.UserID,
		SeatIDs:        req.SeatIDs,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ConfirmPayment handles POST /v1/reservations/:id/confirm.
func (h *ReservationHandler) ConfirmPayment(c echo.Context) error {
	id := c.Param("id")
	resp, err := h.Engine.ConfirmPayment(c.Request().Context(), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// SessionSeats handles GET /v1/sessions/:id/seats.
func (h *ReservationHandler) SessionSeats(c echo.Context) error {
	id := c.Param("id")
	views, err := h.Engine.SeatsForSession(c.Request().Context(), id)
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

func errBody(msg string) map[string]string { return map[string]string{"error": msg} }

func writeEngineError(c echo.Context, err error) error {
	switch engine.KindOf(err) {
	case engine.NotFound:
		return c.JSON(http.StatusNotFound, errBody(err.Error()))
	case engine.Conflict:
		return c.JSON(http.StatusConflict, errBody(err.Error()))
	case engine.BadRequest:
		return c.JSON(http.StatusBadRequest, errBody(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
}
