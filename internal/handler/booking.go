package handler

import (
    "context"
    "errors"
    "math"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-slot-reservation/internal/lifecycle"
    "github.com/iliyamo/parking-slot-reservation/internal/model"
    "github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// BookingEngine is the part of *lifecycle.Engine the handlers drive.
type BookingEngine interface {
    Create(ctx context.Context, req lifecycle.CreateRequest) (*model.Booking, error)
    Advance(ctx context.Context, id uint64) (*model.Booking, error)
    CheckIn(ctx context.Context, id uint64) (*model.Booking, error)
    CheckOut(ctx context.Context, id uint64) (*model.Booking, error)
}

// BookingReader loads a single booking.  *repository.BookingRepo satisfies it.
type BookingReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
}

// BookingHandler serves the /v1/bookings routes.  Customers act on their
// own bookings; operators and admins on any.
type BookingHandler struct {
    Engine   BookingEngine
    Bookings BookingReader
}

// NewBookingHandler panics if a dependency is nil.
func NewBookingHandler(engine BookingEngine, bookings BookingReader) *BookingHandler {
    if engine == nil || bookings == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Engine: engine, Bookings: bookings}
}

// createBookingRequest is the body of POST /v1/bookings.  Fare is in
// currency units, e.g. 20 or 12.50.
type createBookingRequest struct {
    UserID    *uint64  `json:"user_id"`
    VehicleID uint64   `json:"vehicle_id"`
    SlotID    uint64   `json:"slot_id"`
    Fare      *float64 `json:"fare"`
}

// maxFare keeps the cents value inside the column.
const maxFare = math.MaxUint32 / 100

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    var req createBookingRequest
    if err := c.Bind(&req); err != nil {
        return invalid(c, "invalid request body")
    }
    if req.UserID != nil && *req.UserID != uid {
        if !isStaff(c) {
            return forbidden(c)
        }
        uid = *req.UserID
    }
    if req.VehicleID == 0 || req.SlotID == 0 || uid == 0 {
        return invalid(c, "user_id, vehicle_id and slot_id must be positive")
    }
    var cents uint32
    if req.Fare != nil {
        f := *req.Fare
        if math.IsNaN(f) || f < 0 || f > maxFare {
            return invalid(c, "fare must be between 0 and 42949672")
        }
        cents = uint32(math.Round(f * 100))
    }

    b, err := h.Engine.Create(c.Request().Context(), lifecycle.CreateRequest{
        UserID:    uid,
        VehicleID: req.VehicleID,
        SlotID:    req.SlotID,
        FareCents: cents,
    })
    res := lifecycle.ResultFrom("booking created", b, err)
    if err == nil {
        return c.JSON(http.StatusCreated, res)
    }
    return respond(c, res)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    b, ok, err := h.loadOwned(c)
    if !ok {
        return err
    }
    return respond(c, lifecycle.OK("booking found", b))
}

// Advance handles PATCH /v1/bookings/:id/advance.
func (h *BookingHandler) Advance(c echo.Context) error {
    return h.step(c, "booking advanced", h.Engine.Advance)
}

// CheckIn handles PATCH /v1/bookings/:id/checkin.
func (h *BookingHandler) CheckIn(c echo.Context) error {
    return h.step(c, "checked in", h.Engine.CheckIn)
}

// CheckOut handles PATCH /v1/bookings/:id/checkout.
func (h *BookingHandler) CheckOut(c echo.Context) error {
    return h.step(c, "checked out", h.Engine.CheckOut)
}

func (h *BookingHandler) step(c echo.Context, msg string, fn func(context.Context, uint64) (*model.Booking, error)) error {
    b, ok, err := h.loadOwned(c)
    if !ok {
        return err
    }
    next, err := fn(c.Request().Context(), b.ID)
    return respond(c, lifecycle.ResultFrom(msg, next, err))
}

// loadOwned reads the booking named by :id and checks the caller may see it.
// When ok is false the response has already been written.
func (h *BookingHandler) loadOwned(c echo.Context) (*model.Booking, bool, error) {
    uid, err := getUserID(c)
    if err != nil {
        return nil, false, unauthorized(c)
    }
    id, ok := parseID(c, "id")
    if !ok {
        return nil, false, invalid(c, "invalid booking id")
    }
    b, err := h.Bookings.GetByID(c.Request().Context(), id)
    if errors.Is(err, repository.ErrBookingNotFound) {
        return nil, false, respond(c, lifecycle.Result{Outcome: lifecycle.OutcomeFailed, Code: lifecycle.CodeNotFound, Message: "booking not found"})
    }
    if err != nil {
        return nil, false, respond(c, lifecycle.ResultFrom("", nil, err))
    }
    // Foreign bookings look missing to customers.
    if b.UserID != uid && !isStaff(c) {
        return nil, false, respond(c, lifecycle.Result{Outcome: lifecycle.OutcomeFailed, Code: lifecycle.CodeNotFound, Message: "booking not found"})
    }
    return b, true, nil
}
