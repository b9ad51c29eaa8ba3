package model

// Room groups a fixed number of beds.  Rooms are created by the seed and
// never change afterwards.
type Room struct {
	ID         int64  `json:"room_id"`
	RoomNumber string `json:"room_number"`
	TotalBeds  int    `json:"total_beds"`
}

// RoomAvailability summarises how many beds of a room are still free.
type RoomAvailability string

const (
	RoomFull    RoomAvailability = "full"
	RoomPartial RoomAvailability = "partial"
	RoomFree    RoomAvailability = "free"
)

// RoomSummary is the public view of a room used by the bed picker.
type RoomSummary struct {
	Room
	FreeBeds int              `json:"free_beds"`
	Status   RoomAvailability `json:"status"`
}

// RoomWithBeds is the administrative view of a room and all its beds.
type RoomWithBeds struct {
	Room
	Beds []Bed `json:"beds"`
}

// Summarize counts the free beds of room and classifies it.
func Summarize(room Room, beds []Bed) RoomSummary {
	free := 0
	for _, b := range beds {
		if b.Status == BedFree {
			free++
		}
	}
	status := RoomPartial
	switch {
	case free == 0:
		status = RoomFull
	case free == room.TotalBeds:
		status = RoomFree
	}
	return RoomSummary{Room: room, FreeBeds: free, Status: status}
}
