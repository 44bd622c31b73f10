package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// ReservationHandler exposes booking and lifecycle operations over HTTP.
// All methods assume JWT middleware already ran; the authenticated user id
// comes from the request context, never from the body.
type ReservationHandler struct {
	Booking   *service.BookingService
	Lifecycle *service.LifecycleService
}

// NewReservationHandler constructs the handler.  Both services are required.
func NewReservationHandler(booking *service.BookingService, lifecycle *service.LifecycleService) *ReservationHandler {
	if booking == nil || lifecycle == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Booking: booking, Lifecycle: lifecycle}
}

// createRequest is the JSON body for both booking endpoints.  TableID is
// optional; when absent the engine picks the best-fit table.
type createRequest struct {
	BranchID        uint64 `json:"branch_id"`
	TableID         uint64 `json:"table_id,omitempty"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	GuestCount      int    `json:"guest_count"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

func (r createRequest) toInput(userID uint64) (service.CreateReservationInput, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return service.CreateReservationInput{}, &service.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	start, err := model.ParseTimeOfDay(r.Time)
	if err != nil {
		return service.CreateReservationInput{}, &service.ValidationError{Field: "time", Message: "must be HH:MM"}
	}
	return service.CreateReservationInput{
		UserID:          userID,
		BranchID:        r.BranchID,
		TableID:         r.TableID,
		Date:            date,
		Time:            start,
		GuestCount:      r.GuestCount,
		SpecialRequests: r.SpecialRequests,
	}, nil
}

// Create handles POST /v1/reservations.  Returns 201 with the reservation
// on success, 409 with a reason and alternative slots on conflict.
func (h *ReservationHandler) Create(c echo.Context) error {
	return h.create(c, false)
}

// CreateQuick handles POST /v1/reservations/quick.  Identical to Create
// except any table preference in the body is ignored and the engine
// allocates the best fit.
func (h *ReservationHandler) CreateQuick(c echo.Context) error {
	return h.create(c, true)
}

func (h *ReservationHandler) create(c echo.Context, quick bool) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, err := body.toInput(userID)
	if err != nil {
		return writeServiceError(c, err)
	}

	var res *model.Reservation
	if quick {
		res, err = h.Booking.CreateQuickReservation(c.Request().Context(), in)
	} else {
		res, err = h.Booking.CreateReservation(c.Request().Context(), in)
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Lifecycle.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !canAccess(c, res) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateStatus handles PATCH /v1/reservations/:id.  The body carries the
// target status; the state machine decides whether the step is legal.
// Customers may only change their own reservations.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		Status model.ReservationStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil || body.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}
	current, err := h.Lifecycle.Get(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	if !canAccess(c, current) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	res, err := h.Lifecycle.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /v1/reservations/:id.  Staff only; guests cancel
// through UpdateStatus instead.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Lifecycle.Delete(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Complete handles POST /v1/reservations/:id/complete.  The order service
// calls it when the linked dine-in order is paid, freeing the table.
func (h *ReservationHandler) Complete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Lifecycle.Complete(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// canAccess allows staff and admins everywhere and customers only on their
// own reservations.
func canAccess(c echo.Context, res *model.Reservation) bool {
	switch middleware.Role(c) {
	case middleware.RoleAdmin, middleware.RoleStaff:
		return true
	default:
		return res.UserID == middleware.UserID(c)
	}
}

// writeServiceError maps service and repository errors onto HTTP statuses:
// validation 400, not found 404, conflicts and illegal transitions 409.
func writeServiceError(c echo.Context, err error) error {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_failed",
			"field":   validation.Field,
			"message": validation.Message,
		})
	}

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		resp := echo.Map{
			"error":   "booking_conflict",
			"reason":  string(conflict.Reason),
			"message": conflict.Message,
		}
		if len(conflict.Alternatives) > 0 {
			resp["alternatives"] = conflict.Alternatives
		}
		if conflict.BranchPhone != "" {
			resp["branch_phone"] = conflict.BranchPhone
		}
		return c.JSON(http.StatusConflict, resp)
	}

	var state *service.StateError
	if errors.As(err, &state) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "invalid_transition",
			"message": state.Error(),
		})
	}

	switch {
	case errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrBranchNotFound),
		errors.Is(err, repository.ErrTableNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	}

	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
