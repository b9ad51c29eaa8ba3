package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service"
)

// AdmissionHandler serves the school admission form and its admin workflow.
type AdmissionHandler struct {
	svc *service.AdmissionService
}

func NewAdmissionHandler(svc *service.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{svc: svc}
}

type admissionForm struct {
	model.AdmissionForm
	FatherSignature string `json:"father_signature"`
}

func (h *AdmissionHandler) Submit(c echo.Context) error {
	var form admissionForm
	if _, err := decodeFields(c, &form); err != nil {
		return badRequest(c, "invalid body")
	}
	uploads, done, err := collectUploads(c, model.AdmissionDocumentFields)
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}
	defer done()

	ctx, cancel := withTimeout(c)
	defer cancel()
	id, err := h.svc.Submit(ctx, service.NewAdmission{Form: form.AdmissionForm, FatherSignature: form.FatherSignature}, uploads)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Admission submitted successfully!", "id": id})
}

func (h *AdmissionHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.svc.ListActive(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdmissionHandler) Trash(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.svc.ListTrash(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdmissionHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	a, err := h.svc.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// UpdateStatus takes {"status": "Verified"}.
func (h *AdmissionHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if _, err := decodeFields(c, &body); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	res, err := h.svc.UpdateStatus(ctx, id, model.AdmissionStatus(body.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Update replaces the form fields when present and any re-uploaded files.
func (h *AdmissionHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	var form model.AdmissionForm
	present, err := decodeFields(c, &form)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	uploads, done, err := collectUploads(c, model.AdmissionDocumentFields)
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}
	defer done()

	var formPtr *model.AdmissionForm
	if present {
		formPtr = &form
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	a, err := h.svc.Update(ctx, id, formPtr, uploads)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AdmissionHandler) SoftDelete(c echo.Context) error {
	return h.mutate(c, h.svc.SoftDelete, "Moved to trash")
}

func (h *AdmissionHandler) Restore(c echo.Context) error {
	return h.mutate(c, h.svc.Restore, "Restored")
}

func (h *AdmissionHandler) PermanentDelete(c echo.Context) error {
	return h.mutate(c, h.svc.PermanentDelete, "Permanently deleted")
}

func (h *AdmissionHandler) Purge(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	n, err := h.svc.PurgeExpired(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purged": n})
}

func (h *AdmissionHandler) mutate(c echo.Context, op func(context.Context, int64) error, msg string) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := op(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "id": id})
}
