package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

// InventorySeeder creates a room with its beds unless the room exists.
type InventorySeeder interface {
	EnsureRoom(ctx context.Context, roomNumber string, bedLabels []string) error
}

// SeedInventory makes sure rooms 1..rooms exist with perRoom beds each,
// labelled R<room>-B<slot>.  Existing rooms are left untouched, so the call
// is safe on every start.
func SeedInventory(ctx context.Context, s InventorySeeder, rooms, perRoom int) error {
	for r := 1; r <= rooms; r++ {
		labels := make([]string, 0, perRoom)
		for b := 1; b <= perRoom; b++ {
			labels = append(labels, model.BedLabel(r, b))
		}
		if err := s.EnsureRoom(ctx, strconv.Itoa(r), labels); err != nil {
			return fmt.Errorf("seed room %d: %w", r, err)
		}
	}
	return nil
}
