package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// AvailabilityHandler answers read-only availability questions for a
// branch.  These endpoints run the same checker as the booking path but
// never lock anything, so their answers are advisory by nature.
type AvailabilityHandler struct {
	Store     repository.Store
	Allocator *service.Allocator
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(store repository.Store, allocator *service.Allocator) *AvailabilityHandler {
	if store == nil || allocator == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Store: store, Allocator: allocator}
}

// Check handles GET /v1/branches/:id/availability?date=&time=&guests=.
// It reports whether some table seats the party at the requested time and
// which table the allocator would pick.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	branchID, date, guests, ok := h.commonParams(c)
	if !ok {
		return nil
	}
	start, err := model.ParseTimeOfDay(c.QueryParam("time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "time must be HH:MM"})
	}

	branch, err := h.Store.BranchByID(c.Request().Context(), branchID)
	if err != nil {
		return writeServiceError(c, err)
	}
	date, start = branch.NormalizeBookingTime(date, start)

	result, err := h.Allocator.CheckAvailability(c.Request().Context(), branchID, date, start, guests)
	if err != nil {
		return writeServiceError(c, err)
	}

	resp := echo.Map{"available": result.Available}
	if result.Available {
		resp["table"] = result.Table
	} else {
		resp["reason"] = string(result.Reason)
	}
	return c.JSON(http.StatusOK, resp)
}

// TimeSlots handles GET /v1/branches/:id/timeslots?date=&guests=.  It
// returns up to six bookable start times on the branch's 30-minute grid.
func (h *AvailabilityHandler) TimeSlots(c echo.Context) error {
	branchID, date, guests, ok := h.commonParams(c)
	if !ok {
		return nil
	}
	branch, err := h.Store.BranchByID(c.Request().Context(), branchID)
	if err != nil {
		return writeServiceError(c, err)
	}

	slots, err := h.Allocator.FindAvailableTimeSlots(c.Request().Context(), branch, date, guests)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"branch_id": branchID,
		"date":      date.Format("2006-01-02"),
		"slots":     slots,
	})
}

// commonParams parses the branch id, date and guests shared by both
// endpoints.  On failure the 400 response is already written and ok is
// false.
func (h *AvailabilityHandler) commonParams(c echo.Context) (branchID uint64, date time.Time, guests int, ok bool) {
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
		return 0, time.Time{}, 0, false
	}
	date, err = time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		return 0, time.Time{}, 0, false
	}
	guests, err = strconv.Atoi(c.QueryParam("guests"))
	if err != nil || guests < 1 {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "guests must be a positive integer"})
		return 0, time.Time{}, 0, false
	}
	return branchID, date, guests, true
}
