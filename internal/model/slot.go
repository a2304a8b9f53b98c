package model

// SlotStatus is the value stored in slots.status.
type SlotStatus string

const (
    SlotAvailable SlotStatus = "Available"
    SlotReserved  SlotStatus = "Reserved" // booked but not yet checked in
    SlotOccupied  SlotStatus = "Occupied"
)

// Slot describes a physical parking space.  Slots are uniquely
// identified by their floor and slot number.
type Slot struct {
    ID          uint64     `json:"id"`           // slots.id
    FloorNumber int        `json:"floor_number"` // slots.floor_number
    SlotNumber  int        `json:"slot_number"`  // slots.slot_number
    SlotType    string     `json:"slot_type"`    // slots.slot_type
    Status      SlotStatus `json:"status"`       // slots.status
}

// SlotFilter narrows a slot listing.  Statuses are matched
// case-insensitively by the database collation.
type SlotFilter struct {
    Floor    *int
    Statuses []string
    Limit    int
    Offset   int
}
