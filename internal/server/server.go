package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"onion-detect/internal/inference"
	"onion-detect/internal/models"
	"onion-detect/internal/pipeline"
)

// multipartSlack is the room left on top of the file cap for multipart
// boundaries and headers before the body reader cuts the request off.
const multipartSlack = 1 << 20

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	statsDays           = 30
)

// Repository is the read side of the history store.
type Repository interface {
	Ping(ctx context.Context) error
	ListDetections(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	Summary(ctx context.Context) (*models.Summary, error)
	ListDailyStats(ctx context.Context, days int) ([]models.DailyStats, error)
}

type Server struct {
	cfg     *models.Config
	router  *gin.Engine
	srv     *http.Server
	pipe    *pipeline.Pipeline
	repo    Repository
	started time.Time
}

// NewServer wires the routes. repo may be nil when the database is not
// available; detection keeps working and the history endpoints answer 503.
func NewServer(cfg *models.Config, pipe *pipeline.Pipeline, repo Repository) *Server {
	r := gin.Default()
	r.Use(requestID(), securityHeaders(), cors())

	s := &Server{cfg: cfg, router: r, pipe: pipe, repo: repo, started: time.Now()}

	api := r.Group("/api")
	api.GET("", cacheControl(300), s.handleInfo)
	api.POST("/detect", s.handleDetect)
	api.GET("/health", cacheControl(60), s.handleHealth)
	api.GET("/diseases", cacheControl(3600), s.handleDiseases)
	api.GET("/history", s.handleHistory)
	api.GET("/stats", cacheControl(1800), s.handleStats)

	if cfg.StaticDir != "" {
		r.NoRoute(s.handleStatic)
	}

	s.srv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Onion Disease Detection API",
		"version": s.cfg.Version,
		"status":  "running",
		"features": []string{
			"Disease Detection",
			"History Tracking",
			"Statistics",
			"Disease Information",
		},
		"endpoints": gin.H{
			"detect":   "/api/detect",
			"health":   "/api/health",
			"diseases": "/api/diseases",
			"history":  "/api/history",
			"stats":    "/api/stats",
		},
	})
}

func (s *Server) handleDetect(c *gin.Context) {
	const op = "server.handleDetect"

	v := s.pipe.Validator()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, v.MaxBytes()+multipartSlack)

	req, err := readUpload(c, v.MaxBytes())
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, v.TooLarge(c.Request.ContentLength))
			return
		}
		log.Printf("%s: read upload: %v", op, err)
		respondError(c, pipeline.Internal(pipeline.KindStorage, err))
		return
	}

	rep, err := s.pipe.Run(c.Request.Context(), req, pipeline.Meta{
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep.Result)
}

// readUpload pulls the "image" field out of the multipart form. A request
// without that field yields a nil request, which the validator reports as a
// missing file. The payload is only read when its declared size fits under
// maxBytes.
func readUpload(c *gin.Context, maxBytes int64) (*models.UploadRequest, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, nil
	}

	req := &models.UploadRequest{Filename: fh.Filename, Size: fh.Size}
	if fh.Size > maxBytes {
		return req, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	req.Data, err = io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	database := "disabled"
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		database = "connected"
		if err := s.repo.Ping(ctx); err != nil {
			database = "unavailable"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   s.cfg.Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"database":  database,
	})
}

func (s *Server) handleDiseases(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diseases": inference.Diseases()})
}

func (s *Server) handleHistory(c *gin.Context) {
	const op = "server.handleHistory"
	if s.repo == nil {
		respondUnavailable(c, "History unavailable", "Fitur history tidak tersedia")
		return
	}

	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid limit",
				"message": "Parameter limit harus berupa angka positif",
			})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.repo.ListDetections(c.Request.Context(), limit)
	if err != nil {
		log.Printf("%s: %v", op, err)
		respondUnavailable(c, "History unavailable", "Fitur history tidak tersedia")
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(records), "history": records})
}

func (s *Server) handleStats(c *gin.Context) {
	const op = "server.handleStats"
	if s.repo == nil {
		respondUnavailable(c, "Statistics unavailable", "Fitur statistik tidak tersedia")
		return
	}

	summary, err := s.repo.Summary(c.Request.Context())
	if err != nil {
		log.Printf("%s: summary: %v", op, err)
		respondUnavailable(c, "Statistics unavailable", "Fitur statistik tidak tersedia")
		return
	}
	daily, err := s.repo.ListDailyStats(c.Request.Context(), statsDays)
	if err != nil {
		log.Printf("%s: daily: %v", op, err)
		respondUnavailable(c, "Statistics unavailable", "Fitur statistik tidak tersedia")
		return
	}
	if daily == nil {
		daily = []models.DailyStats{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary, "daily": daily})
}

// handleStatic serves the frontend for anything that is not an API route.
func (s *Server) handleStatic(c *gin.Context) {
	rel := filepath.Clean("/" + c.Request.URL.Path)
	if rel == "/" {
		rel = "/index.html"
	}
	path := filepath.Join(s.cfg.StaticDir, rel)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "File " + rel[1:] + " not found"})
		return
	}
	c.File(path)
}

func respondError(c *gin.Context, err error) {
	pe := pipeline.AsError(err)
	c.JSON(statusFor(pe), gin.H{
		"success": false,
		"error":   pe.Code,
		"message": pe.Message,
	})
}

func respondUnavailable(c *gin.Context, code, message string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": code, "message": message})
}

func statusFor(pe *pipeline.Error) int {
	switch {
	case errors.Is(pe, pipeline.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case pe.Kind == pipeline.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
