package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/smartcity-intake/internal/storage"
)

// FileHandler serves stored documents back to the admin screens.
type FileHandler struct {
	blob storage.Blob
}

func NewFileHandler(b storage.Blob) *FileHandler { return &FileHandler{blob: b} }

// Serve streams the object named by the wildcard part of the path.
func (h *FileHandler) Serve(c echo.Context) error {
	ref := strings.TrimPrefix(c.Param("*"), "/")
	info, rc, err := storage.Open(c.Request().Context(), h.blob, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
		}
		return fail(c, err)
	}
	defer rc.Close()
	ct := info.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Stream(http.StatusOK, ct, rc)
}
