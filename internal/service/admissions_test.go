package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/recyclebin"
	"github.com/iliyamo/smartcity-intake/internal/repository/memstore"
	"github.com/iliyamo/smartcity-intake/internal/service"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

func newAdmissions(t *testing.T) (*service.AdmissionService, *memFiles, *notifierMock, *clock) {
	t.Helper()
	files, notifier, clk := newMemFiles(), &notifierMock{}, newClock()
	svc := service.NewAdmissionService(memstore.New().Admissions(), files, notifier, zap.NewNop(),
		service.WithClock(clk.Now), service.WithRecyclePolicy(recyclebin.New(0)))
	return svc, files, notifier, clk
}

func admissionForm(name string) model.AdmissionForm {
	return model.AdmissionForm{
		StudentName:    name,
		FatherName:     "Father of " + name,
		AdmissionClass: "Grade 3",
		Email:          "parent@example.com",
	}
}

func TestAdmissions_SubmitAndVerify(t *testing.T) {
	svc, files, notifier, _ := newAdmissions(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, service.NewAdmission{Form: admissionForm("Ali"), FatherSignature: "data:image/png;base64,AAAA"},
		map[string]ports.Upload{"student_photos": upload("ali.jpg", "x"), "b_form_file": upload("bform.png", "y")})
	require.NoError(t, err)
	a, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.AdmissionPending, a.Status)
	assert.True(t, files.has(a.Documents.StudentPhoto))
	assert.True(t, files.has(a.Documents.BForm))

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n model.Notification) bool {
		return n.Kind == model.NotifyAdmissionVerified && n.Fields["registration_no"] == "NGS-REG-001"
	})).Return(true, nil).Once()

	res, err := svc.UpdateStatus(ctx, id, model.AdmissionVerified)
	require.NoError(t, err)
	assert.True(t, res.NotificationDelivered)
	assert.Equal(t, model.AdmissionVerified, res.Admission.Status)

	// verifying again changes nothing and sends nothing
	res, err = svc.UpdateStatus(ctx, id, model.AdmissionVerified)
	require.NoError(t, err)
	assert.False(t, res.NotificationDelivered)
	notifier.AssertExpectations(t)
}

func TestAdmissions_SubmitValidation(t *testing.T) {
	svc, files, _, _ := newAdmissions(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, service.NewAdmission{}, nil)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Submit(ctx, service.NewAdmission{Form: admissionForm("Bad")},
		map[string]ports.Upload{"school_cert_file": upload("cert.pdf", "x")})
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Empty(t, files.stored)

	_, err = svc.UpdateStatus(ctx, 1, model.AdmissionStatus("Approved"))
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestAdmissions_RecycleBin(t *testing.T) {
	svc, files, _, clk := newAdmissions(t)
	ctx := context.Background()

	keep, err := svc.Submit(ctx, service.NewAdmission{Form: admissionForm("Keep")}, nil)
	require.NoError(t, err)
	gone, err := svc.Submit(ctx, service.NewAdmission{Form: admissionForm("Gone")},
		map[string]ports.Upload{"student_photos": upload("gone.png", "x")})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, gone))
	assert.ErrorIs(t, svc.SoftDelete(ctx, gone), service.ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, gone, model.AdmissionRejected)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep, active[0].ID)

	trash, err := svc.ListTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)

	require.NoError(t, svc.Restore(ctx, gone))
	assert.ErrorIs(t, svc.Restore(ctx, gone), service.ErrInvalidTransition)
	require.NoError(t, svc.SoftDelete(ctx, gone))

	clk.Advance(recyclebin.DefaultRetention)
	trash, err = svc.ListTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, files.stored)
	_, err = svc.Get(ctx, gone)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAdmissions_UpdateAndPermanentDelete(t *testing.T) {
	svc, files, _, clk := newAdmissions(t)
	ctx := context.Background()

	id, err := svc.Submit(ctx, service.NewAdmission{Form: admissionForm("Edit")},
		map[string]ports.Upload{"father_cnic_front": upload("front.png", "old")})
	require.NoError(t, err)
	before, err := svc.Get(ctx, id)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	form := before.Form
	form.ContactNo = "0321-1234567"
	after, err := svc.Update(ctx, id, &form, map[string]ports.Upload{"father_cnic_front": upload("front2.png", "new")})
	require.NoError(t, err)
	assert.Equal(t, "0321-1234567", after.Form.ContactNo)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.False(t, files.has(before.Documents.FatherCNICFront))
	assert.True(t, files.has(after.Documents.FatherCNICFront))

	require.NoError(t, svc.PermanentDelete(ctx, id))
	assert.Empty(t, files.stored)
	assert.ErrorIs(t, svc.PermanentDelete(ctx, id), service.ErrNotFound)
}

// restoringStore restores one admission right after the purge has listed the
// recycle bin, the way an admin clicking restore mid-purge would.
type restoringStore struct {
	ports.AdmissionStore
	afterList func()
}

func (r *restoringStore) List(ctx context.Context, deleted bool) ([]model.Admission, error) {
	rows, err := r.AdmissionStore.List(ctx, deleted)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return rows, err
}

func TestAdmissions_PurgeSkipsRestoredAdmission(t *testing.T) {
	files, clk := newMemFiles(), newClock()
	store := &restoringStore{AdmissionStore: memstore.New().Admissions()}
	svc := service.NewAdmissionService(store, files, &notifierMock{}, zap.NewNop(),
		service.WithClock(clk.Now), service.WithRecyclePolicy(recyclebin.New(0)))
	ctx := context.Background()

	id, err := svc.Submit(ctx, service.NewAdmission{Form: admissionForm("Saved")},
		map[string]ports.Upload{"student_photos": upload("saved.png", "x")})
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, id))
	clk.Advance(recyclebin.DefaultRetention + time.Hour)

	store.afterList = func() { require.NoError(t, svc.Restore(ctx, id)) }
	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	a, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, a.IsDeleted())
	assert.True(t, files.has(a.Documents.StudentPhoto))
}
