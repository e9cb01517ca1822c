// Package httpapi is the thin HTTP adaptor described in §6: admission,
// job status, artifact serving, health.
package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/slidegen/internal/job"
)

// Enqueuer is the subset of the job queue the admission handler needs.
type Enqueuer interface {
	Enqueue(jobID string)
}

// Store is the subset of the job store the HTTP layer needs.
type Store interface {
	Create(jobID string, req job.Input) error
	Get(jobID string) (job.State, error)
	GetInput(jobID string) (job.Input, error)
}

// Config controls the gated/CORS behavior of the server.
type Config struct {
	AllowHTMLDownload  bool
	HTMLDownloadAPIKey string
	CORSAllowedOrigins []string
}

// NewServer builds an *echo.Echo wired with every route in §6.1.
func NewServer(store Store, queue Enqueuer, cfg Config, logger *log.Logger) *echo.Echo {
	if logger == nil {
		logger = log.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	errLogger := log.New(logger.Writer(), "[HTTP] ", logger.Flags())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		errLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]string{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "X-Download-Key"},
	}))
	e.Use(middleware.BodyLimit("12M"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	h := &handler{store: store, queue: queue, cfg: cfg, logger: errLogger}
	api := e.Group("/api")
	api.POST("/generate", h.generate)
	api.GET("/jobs/:jobId", h.getJob)
	api.GET("/jobs/:jobId/preview.png", h.getPreview)
	api.GET("/jobs/:jobId/result.html", h.getResultHTML)

	return e
}

type handler struct {
	store  Store
	queue  Enqueuer
	cfg    Config
	logger *log.Logger
}

func isNotFound(err error) bool {
	var nf *job.NotFoundError
	return errors.As(err, &nf)
}
