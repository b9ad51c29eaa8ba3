// Package handler contains the echo HTTP handlers.  Handlers decode the
// request, call one service method and translate the service error
// taxonomy into status codes; they hold no business rules.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartcity-intake/internal/service"
	"github.com/iliyamo/smartcity-intake/internal/service/ports"
)

const requestTimeout = 10 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail writes the JSON error response matching err.  Unexpected errors are
// returned as a 500 HTTPError carrying the cause, so the request logger
// records it while the client sees only a generic message.
func fail(c echo.Context, err error) error {
	var bc *service.BedConflictError
	switch {
	case errors.As(err, &bc):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  "This bed was just booked by someone else. Please select another.",
			"bed_id": bc.BedLabel,
		})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": detail(err, service.ErrValidation)})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": detail(err, service.ErrInvalidTransition)})
	case errors.Is(err, service.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered for this category"})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"error": "internal server error"}).SetInternal(err)
	}
}

// detail strips the sentinel prefix so clients see only the reason.
func detail(err, kind error) string {
	msg := err.Error()
	if i := strings.Index(msg, kind.Error()+": "); i >= 0 {
		return msg[i+len(kind.Error())+2:]
	}
	return msg
}

func pathID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func isMultipart(c echo.Context) bool {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	return strings.HasPrefix(ct, echo.MIMEMultipartForm) || strings.HasPrefix(ct, echo.MIMEApplicationForm)
}

// decodeFields fills dst from a JSON body or from form values keyed by the
// json tags of dst.  It reports whether any field was present.
func decodeFields(c echo.Context, dst any) (bool, error) {
	if !isMultipart(c) {
		if c.Request().ContentLength == 0 {
			return false, nil
		}
		if err := json.NewDecoder(c.Request().Body).Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	form, err := c.FormParams()
	if err != nil {
		return false, err
	}
	values := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			values[k] = strings.TrimSpace(v[0])
		}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return len(values) > 0, nil
}

// collectUploads opens the multipart files among fields.  The returned
// closer must be called once the service is done with them.
func collectUploads(c echo.Context, fields []string) (map[string]ports.Upload, func(), error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, func() {}, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, err
	}
	uploads := map[string]ports.Upload{}
	var open []multipart.File
	closeAll := func() {
		for _, f := range open {
			_ = f.Close()
		}
	}
	for _, field := range fields {
		hs := form.File[field]
		if len(hs) == 0 || hs[0].Filename == "" {
			continue
		}
		f, err := hs[0].Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		open = append(open, f)
		uploads[field] = ports.Upload{Filename: hs[0].Filename, Size: hs[0].Size, Body: f}
	}
	return uploads, closeAll, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
