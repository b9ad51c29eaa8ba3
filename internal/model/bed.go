package model

import (
	"fmt"
	"strings"
)

// BedStatus is the occupancy state of a single bed.  Only the lifecycle
// manager moves a bed between these values; clients never write it directly.
type BedStatus string

const (
	BedFree     BedStatus = "free"     // nobody claims the bed
	BedReserved BedStatus = "reserved" // at least one pending booking, none verified
	BedOccupied BedStatus = "occupied" // exactly one verified booking
)

// IsValid reports whether s is one of the three known bed states.
func (s BedStatus) IsValid() bool {
	switch s {
	case BedFree, BedReserved, BedOccupied:
		return true
	}
	return false
}

// ParseBedStatus converts a stored value into a BedStatus.  Matching is
// case-insensitive so rows written as "Reserved" by older tooling still load.
func ParseBedStatus(raw string) (BedStatus, error) {
	s := BedStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: bed status %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// Bed is a physical bed inside a room.  Label is globally unique and is the
// key every booking uses to reference the bed.
type Bed struct {
	ID     int64     `json:"id"`
	RoomID int64     `json:"room_id"`
	Label  string    `json:"bed_number"`
	Status BedStatus `json:"status"`
}

// BedLabel formats the canonical label for slot n of room r, e.g. R3-B2.
func BedLabel(room, slot int) string {
	return fmt.Sprintf("R%d-B%d", room, slot)
}

// BedStatusFor derives the status a bed must have given every booking that
// references it.  Deleted and rejected bookings do not count.  A verified
// claimant wins over pending ones.
func BedStatusFor(claimants []Booking) BedStatus {
	status := BedFree
	for _, b := range claimants {
		if b.IsDeleted {
			continue
		}
		switch b.Status {
		case BookingVerified:
			return BedOccupied
		case BookingPending:
			status = BedReserved
		}
	}
	return status
}
