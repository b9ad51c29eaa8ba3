// Package model holds the domain types shared by stores, services and
// handlers, together with the sentinel errors stores return.
package model

import "errors"

var (
	// ErrBedNotFound is returned when no bed carries the requested label.
	ErrBedNotFound = errors.New("bed not found")
	// ErrRoomNotFound is returned when a room id does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrBookingNotFound is returned when a booking id does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrAdmissionNotFound is returned when an admission id does not exist.
	ErrAdmissionNotFound = errors.New("admission not found")
	// ErrUserNotFound is returned by user lookups with no match.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists signals a duplicate (email, category) pair.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidStatus is returned when a stored or supplied status value is
	// not part of its enumeration.
	ErrInvalidStatus = errors.New("invalid status")
)
