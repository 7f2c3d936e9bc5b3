package v1

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
)

// maxImportImageBytes bounds the accepted upload size.
const maxImportImageBytes = 10 << 20

// maxImageWidth is the width timetable photos are downscaled to before being
// sent to the vision model; larger images cost more and extract no better.
const maxImageWidth = 1600

type importRequest struct {
	DataURI string `json:"dataUri"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// importSchedule accepts a timetable photo, either as a multipart "file"
// field or as a JSON data URI, runs extraction, and replaces the whole
// schedule with the result.
func (s *APIV1Service) importSchedule(c echo.Context) error {
	if s.Analyzer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "timetable extraction is not configured")
	}

	ctx := c.Request().Context()
	if !s.importSemaphore.TryAcquire(1) {
		return echo.NewHTTPError(http.StatusConflict, "an import is already in progress")
	}
	defer s.importSemaphore.Release(1)

	raw, err := readUploadedImage(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	dataURI, err := prepareImageDataURI(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable image")
	}

	classes, err := s.Analyzer.Analyze(ctx, dataURI)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("extraction failed: %v", err))
	}

	imported, err := s.Store.ReplaceAll(ctx, classes)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save imported schedule")
	}
	if imported == 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "no usable classes extracted")
	}
	return c.JSON(http.StatusOK, importResponse{Imported: imported})
}

// readUploadedImage returns the raw image bytes from either upload form.
func readUploadedImage(c echo.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxImportImageBytes {
			return nil, fmt.Errorf("image exceeds the %dMB limit", maxImportImageBytes>>20)
		}
		src, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		defer src.Close()
		return io.ReadAll(io.LimitReader(src, maxImportImageBytes))
	}

	var req importRequest
	if err := c.Bind(&req); err != nil || req.DataURI == "" {
		return nil, fmt.Errorf("expected a multipart file or a dataUri field")
	}
	return decodeDataURI(req.DataURI)
}

// decodeDataURI extracts the payload of a base64 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	idx := strings.Index(uri, ",")
	if !strings.HasPrefix(uri, "data:") || idx < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	if len(raw) > maxImportImageBytes {
		return nil, fmt.Errorf("image exceeds the %dMB limit", maxImportImageBytes>>20)
	}
	return raw, nil
}

// prepareImageDataURI decodes the image, downscales it when wider than
// maxImageWidth, and re-encodes it as a JPEG data URI for the vision model.
func prepareImageDataURI(raw []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > maxImageWidth {
		img = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
