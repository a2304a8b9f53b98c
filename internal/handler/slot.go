package handler

import (
    "context"
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-slot-reservation/internal/lifecycle"
    "github.com/iliyamo/parking-slot-reservation/internal/model"
    "github.com/iliyamo/parking-slot-reservation/internal/validation"
)

const defaultSlotLimit = 100

// SlotLister lists slots.  *repository.SlotRepo satisfies it.
type SlotLister interface {
    List(ctx context.Context, f model.SlotFilter) ([]model.Slot, error)
}

// SlotHandler serves the slot listing.  Enums holds the allowed status
// values loaded from the schema at startup.
type SlotHandler struct {
    Slots SlotLister
    Enums validation.EnumTable
}

func NewSlotHandler(slots SlotLister, enums validation.EnumTable) *SlotHandler {
    if slots == nil {
        panic("nil repository passed to NewSlotHandler")
    }
    return &SlotHandler{Slots: slots, Enums: enums}
}

// FloorSlots is one floor of a slot listing.
type FloorSlots struct {
    FloorNumber int          `json:"floor_number"`
    Slots       []model.Slot `json:"slots"`
}

// List handles GET /v1/slots and GET /v1/slots/:floor.
//
//  ?status=available,reserved  any of the slot statuses, case-insensitive
//  ?limit=100&offset=0         pagination over the ordered listing
func (h *SlotHandler) List(c echo.Context) error {
    f := model.SlotFilter{Limit: defaultSlotLimit}

    if raw := c.Param("floor"); raw != "" {
        floor, err := strconv.Atoi(raw)
        if err != nil {
            return invalid(c, "invalid floor number")
        }
        f.Floor = &floor
    }
    statuses, err := h.Enums.ParseList(validation.SlotStatus, c.QueryParam("status"))
    var bad *validation.InvalidValueError
    if errors.As(err, &bad) {
        return invalid(c, bad.Error())
    }
    if err != nil {
        return invalid(c, "invalid status filter")
    }
    f.Statuses = statuses
    if raw := c.QueryParam("limit"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 1 {
            return invalid(c, "limit must be a positive integer")
        }
        f.Limit = n
    }
    if raw := c.QueryParam("offset"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil || n < 0 {
            return invalid(c, "offset must be a non-negative integer")
        }
        f.Offset = n
    }

    slots, err := h.Slots.List(c.Request().Context(), f)
    if err != nil {
        return respond(c, lifecycle.ResultFrom("", nil, err))
    }
    if len(slots) == 0 {
        return respond(c, lifecycle.Result{Outcome: lifecycle.OutcomeFailed, Code: lifecycle.CodeNotFound, Message: "no slots found"})
    }
    return respond(c, lifecycle.OK("slots found", groupByFloor(slots)))
}

// groupByFloor relies on slots being ordered by floor.
func groupByFloor(slots []model.Slot) []FloorSlots {
    var out []FloorSlots
    for _, s := range slots {
        if n := len(out); n == 0 || out[n-1].FloorNumber != s.FloorNumber {
            out = append(out, FloorSlots{FloorNumber: s.FloorNumber})
        }
        last := &out[len(out)-1]
        last.Slots = append(last.Slots, s)
    }
    return out
}
