package lifecycle

import "github.com/iliyamo/parking-slot-reservation/internal/model"

// Event is something that can happen to a booking.
type Event string

const (
	EventCheckIn  Event = "check-in"
	EventCheckOut Event = "check-out"
	EventExpire   Event = "expiry"
)

// Transition is one row of the booking state machine.
type Transition struct {
	From   model.BookingStatus
	Event  Event
	To     model.BookingStatus
	Slot   model.SlotStatus
	Timing model.TimingField
}

// transitions is the only place booking edges are defined.
var transitions = [...]Transition{
	{From: model.BookingBooked, Event: EventCheckIn, To: model.BookingCheckedIn, Slot: model.SlotOccupied, Timing: model.TimingCheckIn},
	{From: model.BookingCheckedIn, Event: EventCheckOut, To: model.BookingCompleted, Slot: model.SlotAvailable, Timing: model.TimingCheckOut},
	{From: model.BookingBooked, Event: EventExpire, To: model.BookingCancelled, Slot: model.SlotAvailable, Timing: model.TimingNone},
}

// Next looks up the transition for (from, ev).  The second return value is
// false for every pair the machine rejects, including all terminal states.
func Next(from model.BookingStatus, ev Event) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.Event == ev {
			return t, true
		}
	}
	return Transition{}, false
}

// AdvanceEvent returns the request-driven event that moves a booking in
// status s forward.  Expiry is never request-driven.
func AdvanceEvent(s model.BookingStatus) (Event, bool) {
	switch s {
	case model.BookingBooked:
		return EventCheckIn, true
	case model.BookingCheckedIn:
		return EventCheckOut, true
	}
	return "", false
}

// SlotStatusFor is the slot status implied by a booking in status s.
func SlotStatusFor(s model.BookingStatus) model.SlotStatus {
	switch s {
	case model.BookingBooked:
		return model.SlotReserved
	case model.BookingCheckedIn:
		return model.SlotOccupied
	}
	return model.SlotAvailable
}
