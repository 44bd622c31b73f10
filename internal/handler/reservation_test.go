package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/model"
	"github.com/iliyamo/restaurant-table-reservation/internal/repository"
	"github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// readOnlyStore serves one reservation and nothing else.  Every other Store
// method hits the embedded nil interface and panics, so a handler that
// writes where it should have stopped fails the test loudly.
type readOnlyStore struct {
	repository.Store
	res model.Reservation
}

func (s *readOnlyStore) ReservationByID(_ context.Context, id uint64) (*model.Reservation, error) {
	if id != s.res.ID {
		return nil, repository.ErrReservationNotFound
	}
	cp := s.res
	return &cp, nil
}

func newReadOnlyHandler(res model.Reservation) *ReservationHandler {
	store := &readOnlyStore{res: res}
	lifecycle := service.NewLifecycleService(store, fanout.Noop{}, nil, zerolog.Nop())
	checker := service.NewAvailabilityChecker(store)
	allocator := service.NewAllocator(store, checker, nil, zerolog.Nop())
	booking := service.NewBookingService(store, allocator, checker, fanout.Noop{}, nil, zerolog.Nop())
	return NewReservationHandler(booking, lifecycle)
}

func patchStatus(t *testing.T, h *ReservationHandler, userID uint64, role, id, status string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/v1/reservations/"+id, strings.NewReader(`{"status":"`+status+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set("user_id", userID)
	c.Set("role", role)
	require.NoError(t, h.UpdateStatus(c))
	return rec
}

func TestUpdateStatusForeignCustomerForbidden(t *testing.T) {
	h := newReadOnlyHandler(model.Reservation{ID: 9, UserID: 42, BranchID: 1, TableID: 3, Status: model.ReservationPending})

	rec := patchStatus(t, h, 7, middleware.RoleCustomer, "9", "cancelled")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestUpdateStatusOwnerReachesStateMachine(t *testing.T) {
	h := newReadOnlyHandler(model.Reservation{ID: 9, UserID: 42, BranchID: 1, TableID: 3, Status: model.ReservationPending})

	// pending -> completed is illegal, so the owner gets a transition
	// conflict rather than the forbidden the guard gives strangers.
	rec := patchStatus(t, h, 42, middleware.RoleCustomer, "9", "completed")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")
}

func TestUpdateStatusStaffPassesGuard(t *testing.T) {
	h := newReadOnlyHandler(model.Reservation{ID: 9, UserID: 42, BranchID: 1, TableID: 3, Status: model.ReservationPending})

	rec := patchStatus(t, h, 500, middleware.RoleStaff, "9", "completed")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, rec.Body.String(), "forbidden")
}

func TestUpdateStatusUnknownReservation(t *testing.T) {
	h := newReadOnlyHandler(model.Reservation{ID: 9, UserID: 42, Status: model.ReservationPending})

	rec := patchStatus(t, h, 42, middleware.RoleCustomer, "8", "cancelled")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
