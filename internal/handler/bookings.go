package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service"
)

// BookingHandler serves applicant-facing booking endpoints and the admin
// hostel workflow.
type BookingHandler struct {
	beds *service.BedLifecycle
}

func NewBookingHandler(beds *service.BedLifecycle) *BookingHandler {
	return &BookingHandler{beds: beds}
}

type bedRef struct {
	BedID string `json:"bed_id"`
}

// bookingForm is the flat submission: applicant fields plus bed_id.
type bookingForm struct {
	model.Applicant
	bedRef
}

// Submit takes a multipart booking form with its documents and reserves
// the chosen bed.
func (h *BookingHandler) Submit(c echo.Context) error {
	var form bookingForm
	if _, err := decodeFields(c, &form); err != nil {
		return badRequest(c, "invalid body")
	}
	uploads, done, err := collectUploads(c, model.BookingDocumentFields)
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}
	defer done()

	ctx, cancel := withTimeout(c)
	defer cancel()
	id, err := h.beds.SubmitBooking(ctx, service.NewBooking{Applicant: form.Applicant, BedLabel: strings.TrimSpace(form.BedID)}, uploads)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Booking submitted successfully!", "id": id})
}

// ByEmail lists the caller's active bookings.
func (h *BookingHandler) ByEmail(c echo.Context) error {
	email, err := url.PathUnescape(c.Param("email"))
	if err != nil || strings.TrimSpace(email) == "" {
		return badRequest(c, "invalid email")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.beds.GetActiveBookings(ctx, model.BookingFilter{Email: strings.TrimSpace(email)})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// AdminList returns active bookings, optionally filtered by ?email= and ?bed_id=.
func (h *BookingHandler) AdminList(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.beds.GetActiveBookings(ctx, model.BookingFilter{
		Email:    strings.TrimSpace(c.QueryParam("email")),
		BedLabel: strings.TrimSpace(c.QueryParam("bed_id")),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.beds.GetBooking(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Verify(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	res, err := h.beds.VerifyBooking(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BookingHandler) Reject(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.beds.RejectBooking(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// SoftDelete moves a booking to the recycle bin.
func (h *BookingHandler) SoftDelete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.beds.SoftDelete(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// RecycleBin lists soft-deleted bookings still inside the retention window.
func (h *BookingHandler) RecycleBin(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.beds.GetTrashedBookings(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) Restore(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	res, err := h.beds.Restore(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *BookingHandler) PermanentDelete(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if _, err := h.beds.PermanentDelete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reassign moves a booking to another bed: {"bed_id": "R3-B1"}.
func (h *BookingHandler) Reassign(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var ref bedRef
	if _, err := decodeFields(c, &ref); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.beds.UpdateBookingAssignment(ctx, id, strings.TrimSpace(ref.BedID))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Update is the full admin edit: applicant fields, replacement documents
// and an optional new bed_id, as multipart or JSON.
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var app model.Applicant
	var ref bedRef
	var hasApplicant bool
	if isMultipart(c) {
		var form bookingForm
		if _, err := decodeFields(c, &form); err != nil {
			return badRequest(c, "invalid body")
		}
		app, ref = form.Applicant, form.bedRef
		hasApplicant = c.FormValue("student_name") != ""
	} else {
		var body struct {
			Applicant *model.Applicant `json:"applicant"`
			BedID     string           `json:"bed_id"`
		}
		if _, err := decodeFields(c, &body); err != nil {
			return badRequest(c, "invalid body")
		}
		if body.Applicant != nil {
			app, hasApplicant = *body.Applicant, true
		}
		ref.BedID = body.BedID
	}
	uploads, done, err := collectUploads(c, model.BookingDocumentFields)
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}
	defer done()

	var applicant *model.Applicant
	if hasApplicant {
		applicant = &app
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	b, err := h.beds.EditBooking(ctx, id, applicant, strings.TrimSpace(ref.BedID), uploads)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Purge removes recycle-bin entries past the retention window now rather
// than at the next scheduled run.
func (h *BookingHandler) Purge(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	n, err := h.beds.PurgeExpired(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purged": n})
}
