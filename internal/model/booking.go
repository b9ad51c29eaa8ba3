package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus is the review state of a hostel booking.
type BookingStatus string

const (
	BookingPending  BookingStatus = "Pending"
	BookingVerified BookingStatus = "Verified"
	BookingRejected BookingStatus = "Rejected"
)

// IsValid reports whether s is a known booking status.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingPending, BookingVerified, BookingRejected:
		return true
	}
	return false
}

// ParseBookingStatus accepts any casing ("verified", "VERIFIED") and returns
// the canonical value.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	for _, s := range []BookingStatus{BookingPending, BookingVerified, BookingRejected} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: booking status %q", ErrInvalidStatus, raw)
}

// Applicant holds the contact and profile fields submitted with a booking.
// The lifecycle manager never interprets them; they travel as a payload.
type Applicant struct {
	StudentName          string `json:"student_name"`
	FatherName           string `json:"father_name"`
	CNIC                 string `json:"cnic"`
	Contact              string `json:"contact"`
	Email                string `json:"email"`
	Profession           string `json:"profession"`
	InstituteName        string `json:"institute_name"`
	EmergencyContactName string `json:"emergency_contact_name"`
	EmergencyContact     string `json:"emergency_contact"`
	Address              string `json:"address"`
	CheckInDate          string `json:"check_in_date"`
	RoomNumber           string `json:"room_number"`
	HasVehicle           string `json:"has_vehicle"`
	VehicleType          string `json:"vehicle_type"`
	VehicleNumber        string `json:"vehicle_number"`
}

// BookingDocuments are stored-file references returned by the file store.
type BookingDocuments struct {
	Photo           string `json:"photo_path,omitempty"`
	CNICFront       string `json:"cnic_front_path,omitempty"`
	CNICBack        string `json:"cnic_back_path,omitempty"`
	ProofProfession string `json:"proof_path,omitempty"`
	FeeVoucher      string `json:"voucher_path,omitempty"`
	Signature       string `json:"signature_path,omitempty"`
}

// BookingDocumentFields lists the multipart field names that carry booking
// documents, in display order.
var BookingDocumentFields = []string{"photo", "cnic_front", "cnic_back", "proof_profession", "fee_voucher", "signature"}

// Set assigns ref to the document identified by its multipart field name.
// Unknown fields are reported as false.
func (d *BookingDocuments) Set(field, ref string) bool {
	switch field {
	case "photo":
		d.Photo = ref
	case "cnic_front":
		d.CNICFront = ref
	case "cnic_back":
		d.CNICBack = ref
	case "proof_profession":
		d.ProofProfession = ref
	case "fee_voucher":
		d.FeeVoucher = ref
	case "signature":
		d.Signature = ref
	default:
		return false
	}
	return true
}

// Refs returns every non-empty reference.
func (d BookingDocuments) Refs() []string {
	var out []string
	for _, r := range []string{d.Photo, d.CNICFront, d.CNICBack, d.ProofProfession, d.FeeVoucher, d.Signature} {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Merge overlays the non-empty references of next on d and returns the result
// together with the references that were replaced.
func (d BookingDocuments) Merge(next BookingDocuments) (BookingDocuments, []string) {
	var replaced []string
	pick := func(cur, nxt string) string {
		if nxt == "" || nxt == cur {
			return cur
		}
		if cur != "" {
			replaced = append(replaced, cur)
		}
		return nxt
	}
	out := BookingDocuments{
		Photo:           pick(d.Photo, next.Photo),
		CNICFront:       pick(d.CNICFront, next.CNICFront),
		CNICBack:        pick(d.CNICBack, next.CNICBack),
		ProofProfession: pick(d.ProofProfession, next.ProofProfession),
		FeeVoucher:      pick(d.FeeVoucher, next.FeeVoucher),
		Signature:       pick(d.Signature, next.Signature),
	}
	return out, replaced
}

// Booking is a hostel bed application.  BedLabel is empty only before a bed
// has been chosen.  DeletedAt is set exactly when IsDeleted is true.
type Booking struct {
	ID        int64            `json:"id"`
	Applicant Applicant        `json:"applicant"`
	Documents BookingDocuments `json:"documents"`
	BedLabel  string           `json:"bed_id,omitempty"`
	Status    BookingStatus    `json:"status"`
	IsDeleted bool             `json:"is_deleted"`
	DeletedAt *time.Time       `json:"deleted_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ClaimsBed reports whether the booking currently holds its bed, either as a
// reservation or as the occupant.
func (b Booking) ClaimsBed() bool {
	return !b.IsDeleted && b.BedLabel != "" &&
		(b.Status == BookingPending || b.Status == BookingVerified)
}

// BookingPatch is a partial update.  Nil fields are left untouched.  When
// Deleted is set to true the row's deleted_at becomes DeletedAt; when set to
// false deleted_at is cleared.
type BookingPatch struct {
	Applicant *Applicant
	Documents *BookingDocuments
	BedLabel  *string
	Status    *BookingStatus
	Deleted   *bool
	DeletedAt time.Time
	UpdatedAt time.Time
}

// BookingFilter selects bookings for listing.  Deleted picks the soft-deleted
// side instead of the active one.  Empty string fields do not filter.
type BookingFilter struct {
	Email    string
	BedLabel string
	Deleted  bool
}
