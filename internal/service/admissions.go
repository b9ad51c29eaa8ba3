package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

// AdmissionService runs the school intake: submission, review and the
// admission recycle bin.  Admissions hold no inventory, so every step is a
// single store call.
type AdmissionService struct {
	store    ports.AdmissionStore
	files    ports.FileStore
	notifier ports.Notifier
	log      *zap.Logger
	options
}

func NewAdmissionService(store ports.AdmissionStore, files ports.FileStore, notifier ports.Notifier, log *zap.Logger, opts ...Option) *AdmissionService {
	if log == nil {
		log = zap.NewNop()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &AdmissionService{store: store, files: files, notifier: notifier, log: log, options: o}
}

// NewAdmission is the public admission form with its signature.
type NewAdmission struct {
	Form            model.AdmissionForm
	FatherSignature string
}

// AdmissionStatusResult carries the updated record and the notification
// outcome of a verification.
type AdmissionStatusResult struct {
	Admission             model.Admission `json:"admission"`
	NotificationDelivered bool            `json:"notification_delivered"`
}

func (s *AdmissionService) observe(op string, err *error) {
	s.rec.ObserveOperation("admission_"+op, Outcome(*err))
}

// Submit stores the uploads and records a pending admission.
func (s *AdmissionService) Submit(ctx context.Context, in NewAdmission, uploads map[string]ports.Upload) (id int64, err error) {
	defer s.observe("submit", &err)

	if strings.TrimSpace(in.Form.StudentName) == "" {
		return 0, validation("student_name is required")
	}
	var docs model.AdmissionDocuments
	stored, err := storeDocuments(ctx, s.files, uploads, model.AdmissionDocumentFields, docs.Set)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	a := model.Admission{
		Form:            in.Form,
		Documents:       docs,
		FatherSignature: in.FatherSignature,
		Status:          model.AdmissionPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	id, err = s.store.Insert(ctx, &a)
	if err != nil {
		releaseFiles(ctx, s.files, s.log, stored)
		return 0, classify("insert admission", err)
	}
	s.log.Info("admission submitted", zap.Int64("admission_id", id))
	return id, nil
}

func (s *AdmissionService) Get(ctx context.Context, id int64) (model.Admission, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Admission{}, classify("get admission", err)
	}
	return a, nil
}

// ListActive returns admissions outside the recycle bin, newest first.
func (s *AdmissionService) ListActive(ctx context.Context) ([]model.Admission, error) {
	out, err := s.store.List(ctx, false)
	if err != nil {
		return nil, classify("list admissions", err)
	}
	return out, nil
}

// ListTrash returns soft-deleted admissions still inside the retention window.
func (s *AdmissionService) ListTrash(ctx context.Context) ([]model.Admission, error) {
	rows, err := s.store.List(ctx, true)
	if err != nil {
		return nil, classify("list admission recycle bin", err)
	}
	now := s.now().UTC()
	out := make([]model.Admission, 0, len(rows))
	for _, a := range rows {
		if s.policy.Evaluate(a.IsDeleted(), a.DeletedAt, now).Visible {
			out = append(out, a)
		}
	}
	return out, nil
}

// UpdateStatus sets the review status.  Moving to Verified sends the
// admission letter; delivery failure does not undo the change.
func (s *AdmissionService) UpdateStatus(ctx context.Context, id int64, status model.AdmissionStatus) (res AdmissionStatusResult, err error) {
	defer s.observe("status", &err)

	if !status.IsValid() {
		return AdmissionStatusResult{}, validation("unknown status %q", status)
	}
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return AdmissionStatusResult{}, classify("load admission", err)
	}
	if a.IsDeleted() {
		return AdmissionStatusResult{}, invalidTransition("admission %d is in the recycle bin", id)
	}
	now := s.now().UTC()
	if err := s.store.UpdateFields(ctx, id, model.AdmissionPatch{Status: &status, UpdatedAt: now}); err != nil {
		return AdmissionStatusResult{}, classify("update admission status", err)
	}
	previous := a.Status
	a.Status, a.UpdatedAt = status, now
	res.Admission = a

	if status == model.AdmissionVerified && previous != model.AdmissionVerified {
		res.NotificationDelivered = deliver(ctx, s.notifier, s.log, model.AdmissionVerifiedNotification(a))
	}
	return res, nil
}

// Update replaces the form fields and any re-uploaded documents.
func (s *AdmissionService) Update(ctx context.Context, id int64, form *model.AdmissionForm, uploads map[string]ports.Upload) (a model.Admission, err error) {
	defer s.observe("update", &err)

	a, err = s.store.GetByID(ctx, id)
	if err != nil {
		return model.Admission{}, classify("load admission", err)
	}
	var docs model.AdmissionDocuments
	stored, err := storeDocuments(ctx, s.files, uploads, model.AdmissionDocumentFields, docs.Set)
	if err != nil {
		return model.Admission{}, err
	}

	now := s.now().UTC()
	patch := model.AdmissionPatch{UpdatedAt: now}
	if form != nil {
		patch.Form = form
		a.Form = *form
	}
	var replaced []string
	if len(stored) > 0 {
		merged, old := a.Documents.Merge(docs)
		patch.Documents = &merged
		a.Documents, replaced = merged, old
	}
	if err := s.store.UpdateFields(ctx, id, patch); err != nil {
		releaseFiles(ctx, s.files, s.log, stored)
		return model.Admission{}, classify("update admission", err)
	}
	a.UpdatedAt = now
	releaseFiles(ctx, s.files, s.log, replaced)
	return a, nil
}

// SoftDelete moves an admission to the recycle bin.
func (s *AdmissionService) SoftDelete(ctx context.Context, id int64) (err error) {
	defer s.observe("soft_delete", &err)

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return classify("load admission", err)
	}
	if a.IsDeleted() {
		return invalidTransition("admission %d is already in the recycle bin", id)
	}
	moved, err := s.store.SetDeleted(ctx, id, true, s.now().UTC())
	if err != nil {
		return classify("soft delete admission", err)
	}
	if !moved {
		return invalidTransition("admission %d is already in the recycle bin", id)
	}
	return nil
}

// Restore takes an admission out of the recycle bin.
func (s *AdmissionService) Restore(ctx context.Context, id int64) (err error) {
	defer s.observe("restore", &err)

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return classify("load admission", err)
	}
	if !a.IsDeleted() {
		return invalidTransition("admission %d is not in the recycle bin", id)
	}
	moved, err := s.store.SetDeleted(ctx, id, false, s.now().UTC())
	if err != nil {
		return classify("restore admission", err)
	}
	if !moved {
		return invalidTransition("admission %d is not in the recycle bin", id)
	}
	return nil
}

// PermanentDelete erases an admission and its documents.
func (s *AdmissionService) PermanentDelete(ctx context.Context, id int64) (err error) {
	defer s.observe("permanent_delete", &err)

	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return classify("load admission", err)
	}
	if err := s.store.HardDelete(ctx, id); err != nil {
		return classify("delete admission", err)
	}
	releaseFiles(ctx, s.files, s.log, a.Documents.Refs())
	return nil
}

// PurgeExpired erases admissions past the retention window.
func (s *AdmissionService) PurgeExpired(ctx context.Context) (n int, err error) {
	defer s.observe("purge", &err)

	rows, err := s.store.List(ctx, true)
	if err != nil {
		return 0, classify("list admission recycle bin", err)
	}
	now := s.now().UTC()
	cutoff := s.policy.Cutoff(now)
	for _, a := range rows {
		if !s.policy.Evaluate(a.IsDeleted(), a.DeletedAt, now).EligibleForPurge {
			continue
		}
		// the row may have been restored or erased since the listing
		gone, err := s.store.PurgeDeleted(ctx, a.ID, cutoff)
		if err != nil {
			return n, classify(fmt.Sprintf("purge admission %d", a.ID), err)
		}
		if !gone {
			continue
		}
		releaseFiles(ctx, s.files, s.log, a.Documents.Refs())
		n++
	}
	if n > 0 {
		s.log.Info("admission recycle bin purged", zap.Int("admissions", n))
	}
	return n, nil
}
