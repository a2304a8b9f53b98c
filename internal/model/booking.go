package model

import "time"

// BookingStatus is the value stored in bookings.status.
type BookingStatus string

const (
    BookingBooked    BookingStatus = "Booked"
    BookingCheckedIn BookingStatus = "CheckedIn"
    BookingCompleted BookingStatus = "Completed"
    BookingCancelled BookingStatus = "Cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s BookingStatus) Valid() bool {
    switch s {
    case BookingBooked, BookingCheckedIn, BookingCompleted, BookingCancelled:
        return true
    }
    return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s BookingStatus) IsTerminal() bool {
    return s == BookingCompleted || s == BookingCancelled
}

// IsActive is the complement of IsTerminal for known statuses.
func (s BookingStatus) IsActive() bool {
    return s == BookingBooked || s == BookingCheckedIn
}

// TimingField selects which timestamp column a status write also sets.
// Only these fixed columns can ever be targeted.
type TimingField int

const (
    TimingNone     TimingField = iota // no timestamp column
    TimingCheckIn                     // bookings.checkin_time
    TimingCheckOut                    // bookings.checkout_time
)

func (f TimingField) String() string {
    switch f {
    case TimingCheckIn:
        return "checkin_time"
    case TimingCheckOut:
        return "checkout_time"
    }
    return "none"
}

// Booking links a user, a vehicle and a slot with a lifecycle status.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – user who placed the booking.
//  VehicleID    – vehicle that will occupy the slot.
//  SlotID       – slot being booked.
//  FareCents    – agreed fare in cents.
//  Status       – Booked, CheckedIn, Completed or Cancelled.
//  BookingTime  – when the booking was created (UTC).
//  CheckinTime  – set on check-in, nil before.
//  CheckoutTime – set on check-out, nil before.
type Booking struct {
    ID           uint64        `json:"id"`            // bookings.id
    UserID       uint64        `json:"user_id"`       // bookings.user_id
    VehicleID    uint64        `json:"vehicle_id"`    // bookings.vehicle_id
    SlotID       uint64        `json:"slot_id"`       // bookings.slot_id
    FareCents    uint32        `json:"fare_cents"`    // bookings.fare_cents
    Status       BookingStatus `json:"status"`        // bookings.status
    BookingTime  time.Time     `json:"booking_time"`  // bookings.booking_time
    CheckinTime  *time.Time    `json:"checkin_time"`  // bookings.checkin_time (nullable)
    CheckoutTime *time.Time    `json:"checkout_time"` // bookings.checkout_time (nullable)
}

// NewBooking carries the input of a booking insert.
type NewBooking struct {
    UserID      uint64
    VehicleID   uint64
    SlotID      uint64
    FareCents   uint32
    BookingTime time.Time
}
