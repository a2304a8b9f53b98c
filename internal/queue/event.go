// Package queue defines the booking lifecycle events and moves them over
// the configured message broker.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/parking-slot-reservation/internal/model"
)

// Event types, also used as AMQP routing keys.
const (
    EventBookingCreated   = "booking.created"
    EventBookingCheckedIn = "booking.checked_in"
    EventBookingCompleted = "booking.completed"
    EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking status change commits.  It
// contains enough information for downstream consumers to log, notify, or
// bill without querying the primary database.
type BookingEvent struct {
    EventID    string `json:"event_id"`
    Type       string `json:"type"`
    BookingID  uint64 `json:"booking_id"`
    UserID     uint64 `json:"user_id"`
    VehicleID  uint64 `json:"vehicle_id"`
    SlotID     uint64 `json:"slot_id"`
    Status     string `json:"status"`
    FareCents  uint32 `json:"fare_cents"`
    OccurredAt string `json:"occurred_at"` // RFC3339, UTC
}

// NewBookingEvent snapshots b into an event of the given type.
func NewBookingEvent(typ string, b *model.Booking, at time.Time) BookingEvent {
    return BookingEvent{
        EventID:    uuid.NewString(),
        Type:       typ,
        BookingID:  b.ID,
        UserID:     b.UserID,
        VehicleID:  b.VehicleID,
        SlotID:     b.SlotID,
        Status:     string(b.Status),
        FareCents:  b.FareCents,
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
}
