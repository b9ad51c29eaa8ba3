package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartcity-intake/internal/model"
	"github.com/iliyamo/smartcity-intake/internal/service"
)

func newCtx(method, body, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestFail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"conflict names the bed", &service.BedConflictError{BedLabel: "R4-B2"}, http.StatusConflict, `"bed_id":"R4-B2"`},
		{"validation detail", fmt.Errorf("submit: %w: bed_id is required", service.ErrValidation), http.StatusBadRequest, `"error":"bed_id is required"`},
		{"not found", fmt.Errorf("load: %w: %w", service.ErrNotFound, model.ErrBookingNotFound), http.StatusNotFound, `not found`},
		{"transition", fmt.Errorf("%w: booking 3 is in the recycle bin", service.ErrInvalidTransition), http.StatusConflict, `booking 3 is in the recycle bin`},
		{"duplicate", service.ErrDuplicate, http.StatusConflict, `already registered`},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, `invalid credentials`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodGet, "", "")
			require.NoError(t, fail(c, tt.err))
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestFail_UnexpectedErrorCarriesCause(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", service.ErrStorage)
	c, rec := newCtx(http.MethodGet, "", "")

	err := fail(c, cause)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.ErrorIs(t, err, service.ErrStorage)
	assert.Zero(t, rec.Body.Len())

	// echo renders the message, never the cause
	c.Echo().HTTPErrorHandler(err, c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestDecodeFields(t *testing.T) {
	var ref bedRef
	c, _ := newCtx(http.MethodPatch, `{"bed_id":"R2-B1"}`, echo.MIMEApplicationJSON)
	present, err := decodeFields(c, &ref)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "R2-B1", ref.BedID)

	c, _ = newCtx(http.MethodPatch, "", echo.MIMEApplicationJSON)
	present, err = decodeFields(c, &ref)
	require.NoError(t, err)
	assert.False(t, present)

	c, _ = newCtx(http.MethodPatch, `{"bed_id":`, echo.MIMEApplicationJSON)
	_, err = decodeFields(c, &ref)
	assert.Error(t, err)

	form := url.Values{"student_name": {"  Hina "}, "bed_id": {"R1-B3"}}
	c, _ = newCtx(http.MethodPost, form.Encode(), echo.MIMEApplicationForm)
	var bf bookingForm
	present, err = decodeFields(c, &bf)
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "Hina", bf.StudentName)
	assert.Equal(t, "R1-B3", bf.BedID)
}

func TestPathID(t *testing.T) {
	for raw, want := range map[string]bool{"12": true, "0": false, "-3": false, "x": false} {
		c, _ := newCtx(http.MethodGet, "", "")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, ok := pathID(c)
		assert.Equal(t, want, ok, raw)
	}
}

func TestReady(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "", "")
	require.NoError(t, Ready(nil)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodGet, "", "")
	require.NoError(t, Ready(downDB{})(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("down") }
