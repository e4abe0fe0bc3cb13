// Package api provides the HTTP surface for catalogd.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/config"
	"github.com/fyrsmithlabs/catalogd/internal/ingest"
	"github.com/fyrsmithlabs/catalogd/internal/search"
	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

// Server provides HTTP endpoints for catalogd.
type Server struct {
	echo    *echo.Echo
	search  *search.Service
	jobs    *ingest.Jobs
	indexer *ingest.Indexer
	logger  *zap.Logger
	config  config.ServerConfig
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg config.ServerConfig, searchSvc *search.Service, jobs *ingest.Jobs, indexer *ingest.Indexer, logger *zap.Logger) (*Server, error) {
	if searchSvc == nil || jobs == nil || indexer == nil {
		return nil, fmt.Errorf("search service, job store and indexer are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		search:  searchSvc,
		jobs:    jobs,
		indexer: indexer,
		logger:  logger,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/uploads", s.handleUpload)
	v1.GET("/uploads/:id", s.handleUploadStatus)
	v1.POST("/uploads/:id/cancel", s.handleUploadCancel)
	v1.GET("/autocomplete", s.handleAutocomplete)
	v1.GET("/search", s.handleSearch)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UploadResponse is the response body for POST /api/v1/uploads.
type UploadResponse struct {
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleUpload accepts a multipart CSV and starts a background indexing job.
func (s *Server) handleUpload(c echo.Context) error {
	clientID := c.FormValue("client_id")
	if clientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_id field is required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		s.logger.Warn("opening upload failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	// Buffer the whole file so the request can return before indexing.
	data, err := io.ReadAll(f)
	if err != nil {
		s.logger.Warn("reading upload failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}

	jobID := uuid.NewString()
	ctx := c.Request().Context()
	s.jobs.Start(ctx, jobID)

	collection := vectorstore.CollectionFor(clientID)
	go func() {
		// The request context dies with the response; the job must not.
		bgCtx := context.Background()
		if err := s.indexer.Run(bgCtx, jobID, clientID, collection, bytes.NewReader(data)); err != nil {
			s.logger.Error("upload job failed",
				zap.String("job_id", jobID),
				zap.String("client_id", clientID),
				zap.Error(err))
		}
	}()

	return c.JSON(http.StatusAccepted, UploadResponse{UploadID: jobID, Status: ingest.StatusProcessing})
}

func (s *Server) handleUploadStatus(c echo.Context) error {
	job, err := s.jobs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ingest.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "upload not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "reading upload status failed")
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleUploadCancel(c echo.Context) error {
	id := c.Param("id")
	if err := s.jobs.RequestCancel(c.Request().Context(), id); err != nil {
		if errors.Is(err, ingest.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "upload not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cancelling upload failed")
	}
	return c.JSON(http.StatusAccepted, UploadResponse{UploadID: id, Status: "cancel_requested"})
}

// handleAutocomplete serves suggestions; an empty query returns the
// tenant's top items panel.
func (s *Server) handleAutocomplete(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	if clientID == "" {
		clientID = "default"
	}
	q := c.QueryParam("q")

	ctx := c.Request().Context()
	if q == "" {
		return c.JSON(http.StatusOK, s.search.TopItems(ctx, clientID))
	}
	return c.JSON(http.StatusOK, s.search.Suggest(ctx, clientID, q))
}

func (s *Server) handleSearch(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	clientID := c.QueryParam("client_id")
	if clientID == "" {
		clientID = "default"
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return c.JSON(http.StatusOK, s.search.Search(c.Request().Context(), clientID, q, limit))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets tests drive the router directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
