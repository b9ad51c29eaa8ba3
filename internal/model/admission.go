package model

import (
	"fmt"
	"strings"
	"time"
)

// AdmissionStatus is the review state of a school admission.
type AdmissionStatus string

const (
	AdmissionPending  AdmissionStatus = "Pending"
	AdmissionVerified AdmissionStatus = "Verified"
	AdmissionRejected AdmissionStatus = "Rejected"
)

func (s AdmissionStatus) IsValid() bool {
	switch s {
	case AdmissionPending, AdmissionVerified, AdmissionRejected:
		return true
	}
	return false
}

// ParseAdmissionStatus is the case-insensitive counterpart of IsValid.
func ParseAdmissionStatus(raw string) (AdmissionStatus, error) {
	for _, s := range []AdmissionStatus{AdmissionPending, AdmissionVerified, AdmissionRejected} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: admission status %q", ErrInvalidStatus, raw)
}

// AdmissionForm mirrors the fields of the paper admission form.
type AdmissionForm struct {
	AdmissionClass       string `json:"admission_class"`
	AdmissionDate        string `json:"admission_date"`
	StudentName          string `json:"student_name"`
	Gender               string `json:"gender"`
	DOB                  string `json:"dob"`
	Religion             string `json:"religion"`
	BFormNo              string `json:"b_form_no"`
	FatherName           string `json:"father_name"`
	FatherCNIC           string `json:"father_cnic"`
	FatherOccupation     string `json:"father_occupation"`
	MotherName           string `json:"mother_name"`
	MotherEducation      string `json:"mother_education"`
	MonthlyIncome        string `json:"monthly_income"`
	ContactNo            string `json:"contact_no"`
	HomeAddress          string `json:"home_address"`
	PostalAddress        string `json:"postal_address"`
	HasDisability        string `json:"has_disability"`
	MajorDisability      string `json:"major_disability"`
	AdditionalDisability string `json:"additional_disability"`
	DisabilityCertNo     string `json:"disability_cert_no"`
	EmergencyContact     string `json:"emergency_contact"`
	PrevSchoolDetails    string `json:"prev_school_details"`
	LeavingReason        string `json:"leaving_reason"`
	Email                string `json:"email"`
}

// AdmissionDocuments are stored-file references for an admission.
type AdmissionDocuments struct {
	StudentPhoto      string `json:"student_photos_path,omitempty"`
	BForm             string `json:"b_form_file_path,omitempty"`
	FatherCNICFront   string `json:"father_cnic_front_path,omitempty"`
	FatherCNICBack    string `json:"father_cnic_back_path,omitempty"`
	SchoolCertificate string `json:"school_cert_file_path,omitempty"`
}

// AdmissionDocumentFields are the multipart field names for admission files.
var AdmissionDocumentFields = []string{"student_photos", "b_form_file", "father_cnic_front", "father_cnic_back", "school_cert_file"}

func (d *AdmissionDocuments) Set(field, ref string) bool {
	switch field {
	case "student_photos":
		d.StudentPhoto = ref
	case "b_form_file":
		d.BForm = ref
	case "father_cnic_front":
		d.FatherCNICFront = ref
	case "father_cnic_back":
		d.FatherCNICBack = ref
	case "school_cert_file":
		d.SchoolCertificate = ref
	default:
		return false
	}
	return true
}

func (d AdmissionDocuments) Refs() []string {
	var out []string
	for _, r := range []string{d.StudentPhoto, d.BForm, d.FatherCNICFront, d.FatherCNICBack, d.SchoolCertificate} {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Merge overlays next on d, returning the merged set and the replaced refs.
func (d AdmissionDocuments) Merge(next AdmissionDocuments) (AdmissionDocuments, []string) {
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
	return AdmissionDocuments{
		StudentPhoto:      pick(d.StudentPhoto, next.StudentPhoto),
		BForm:             pick(d.BForm, next.BForm),
		FatherCNICFront:   pick(d.FatherCNICFront, next.FatherCNICFront),
		FatherCNICBack:    pick(d.FatherCNICBack, next.FatherCNICBack),
		SchoolCertificate: pick(d.SchoolCertificate, next.SchoolCertificate),
	}, replaced
}

// Admission is a school admission record.  It is soft-deleted when DeletedAt
// is non-nil.  FatherSignature holds the drawn signature as a data URL.
type Admission struct {
	ID              int64              `json:"id"`
	Form            AdmissionForm      `json:"form"`
	Documents       AdmissionDocuments `json:"documents"`
	FatherSignature string             `json:"father_signature,omitempty"`
	Status          AdmissionStatus    `json:"status"`
	DeletedAt       *time.Time         `json:"deleted_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (a Admission) IsDeleted() bool { return a.DeletedAt != nil }

// RegistrationNo is the reference printed on the admission letter.
func (a Admission) RegistrationNo() string {
	return fmt.Sprintf("NGS-REG-%03d", a.ID)
}

// AdmissionPatch is a partial update of an admission.
type AdmissionPatch struct {
	Form      *AdmissionForm
	Documents *AdmissionDocuments
	Status    *AdmissionStatus
	Deleted   *bool
	DeletedAt time.Time
	UpdatedAt time.Time
}
