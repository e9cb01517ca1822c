package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/slidegen/internal/job"
)

const maxImageBase64Chars = 12_000_000
const maxImageDecodedBytes = 4 * 1024 * 1024

type generateRequest struct {
	Prompt      string `json:"prompt"`
	Aspect      string `json:"aspect"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

type generateResponse struct {
	JobID string `json:"jobId"`
}

type sourcesResponse struct {
	URLs  []string `json:"urls"`
	Files []string `json:"files"`
}

type jobStatusResponse struct {
	Status        string          `json:"status"`
	Step          string          `json:"step,omitempty"`
	Error         string          `json:"error,omitempty"`
	PreviewPNGURL string          `json:"previewPngUrl,omitempty"`
	Sources       sourcesResponse `json:"sources"`
}

func (h *handler) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body.")
	}

	imageDataURL, err := normalizeImage(req.ImageBase64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	input := job.Input{Prompt: req.Prompt, Aspect: job.Aspect(req.Aspect), ImageDataURL: imageDataURL}
	if err := input.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	input.JobID = uuid.NewString()
	if err := h.store.Create(input.JobID, input); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create job.")
	}
	h.queue.Enqueue(input.JobID)

	return c.JSON(http.StatusOK, generateResponse{JobID: input.JobID})
}

func (h *handler) getJob(c echo.Context) error {
	jobID := c.Param("jobId")
	st, err := h.store.Get(jobID)
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := jobStatusResponse{
		Status: string(st.Status),
		Step:   string(st.Step),
		Error:  st.Error,
		Sources: sourcesResponse{
			URLs:  st.Sources.URLs.Items(),
			Files: st.Sources.Files.Items(),
		},
	}
	if st.Status == job.StatusSucceeded && st.PreviewPNGPath != "" {
		resp.PreviewPNGURL = "/api/jobs/" + jobID + "/preview.png"
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *handler) getPreview(c echo.Context) error {
	jobID := c.Param("jobId")
	st, err := h.store.Get(jobID)
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if st.Status != job.StatusSucceeded || st.PreviewPNGPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "preview not available.")
	}
	return c.File(st.PreviewPNGPath)
}

func (h *handler) getResultHTML(c echo.Context) error {
	if !h.cfg.AllowHTMLDownload {
		return echo.NewHTTPError(http.StatusNotFound, "html download disabled.")
	}
	if h.cfg.HTMLDownloadAPIKey != "" && c.Request().Header.Get("X-Download-Key") != h.cfg.HTMLDownloadAPIKey {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid download key.")
	}

	jobID := c.Param("jobId")
	st, err := h.store.Get(jobID)
	if err != nil {
		if isNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if st.ResultHTMLPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "result not available.")
	}

	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+jobID+`.html"`)
	return c.File(st.ResultHTMLPath)
}

// normalizeImage accepts either a bare base64 payload or a data: URL and
// returns a well-formed data URL, validating the size and magic-byte type
// rules from the admission contract. Empty input returns an empty result.
func normalizeImage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	payload := raw
	if strings.HasPrefix(raw, "data:") {
		_, rest, ok := strings.Cut(raw, ",")
		if !ok {
			return "", &job.ValidationError{Msg: "imageBase64 data URL is missing its base64 payload."}
		}
		payload = rest
	}

	if len(payload) > maxImageBase64Chars {
		return "", &job.ValidationError{Msg: "imageBase64 exceeds the maximum source length."}
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", &job.ValidationError{Msg: "imageBase64 is not valid base64."}
	}
	if len(decoded) > maxImageDecodedBytes {
		return "", &job.ValidationError{Msg: "decoded image exceeds the 4 MiB limit."}
	}
	mime := sniffImageMIME(decoded)
	if mime == "" {
		return "", &job.ValidationError{Msg: "image must be PNG or JPEG."}
	}
	return "data:" + mime + ";base64," + payload, nil
}

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
)

func sniffImageMIME(data []byte) string {
	if hasPrefix(data, pngSignature) {
		return "image/png"
	}
	if hasPrefix(data, jpegSignature) {
		return "image/jpeg"
	}
	return ""
}

func hasPrefix(data, sig []byte) bool {
	if len(data) < len(sig) {
		return false
	}
	for i, b := range sig {
		if data[i] != b {
			return false
		}
	}
	return true
}
