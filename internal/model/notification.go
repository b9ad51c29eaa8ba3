package model

// NotificationKind selects the message template.
type NotificationKind string

const (
	NotifyBookingVerified   NotificationKind = "booking_verified"
	NotifyAdmissionVerified NotificationKind = "admission_verified"
)

// Notification is the recipient data handed to a notifier.  Fields carries
// template values such as the bed label or registration number.
type Notification struct {
	Kind      NotificationKind  `json:"kind"`
	Recipient string            `json:"recipient"`
	Name      string            `json:"name"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// BookingVerifiedNotification builds the message sent once a booking is verified.
func BookingVerifiedNotification(b Booking) Notification {
	return Notification{
		Kind:      NotifyBookingVerified,
		Recipient: b.Applicant.Email,
		Name:      b.Applicant.StudentName,
		Fields: map[string]string{
			"room_number":   b.Applicant.RoomNumber,
			"bed_id":        b.BedLabel,
			"check_in_date": b.Applicant.CheckInDate,
		},
	}
}

// AdmissionVerifiedNotification builds the admission confirmation message.
func AdmissionVerifiedNotification(a Admission) Notification {
	return Notification{
		Kind:      NotifyAdmissionVerified,
		Recipient: a.Form.Email,
		Name:      a.Form.StudentName,
		Fields: map[string]string{
			"registration_no": a.RegistrationNo(),
			"admission_class": a.Form.AdmissionClass,
			"father_name":     a.Form.FatherName,
		},
	}
}
