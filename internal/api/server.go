package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/samcharles93/headliner/internal/decode"
	"github.com/samcharles93/headliner/internal/logger"
	"github.com/samcharles93/headliner/internal/titlegen"
)

const headerRequestID = "X-Request-ID"

// TitleService generates titles for one request.
type TitleService interface {
	GenerateWith(ctx context.Context, content string, cfg decode.Config) (titlegen.Result, error)
	Config() decode.Config
}

// ServerConfig tunes admission and limits. Zero values disable the matching
// limit.
type ServerConfig struct {
	// MaxTitles caps "sentences" per request.
	MaxTitles int
	// MaxConcurrent bounds generations in flight; excess requests get 503.
	MaxConcurrent int64
	// RateLimit is the sustained requests per second admitted; excess get 429.
	RateLimit float64
	Burst     int
	Version   string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  logger.Logger
}

type Server struct {
	service TitleService
	cfg     ServerConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	log     logger.Logger
}

func NewServer(service TitleService, cfg ServerConfig) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		log:     cfg.Logger,
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(int(cfg.RateLimit), 1)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/title", s.handleTitle)
	e.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		e.GET("/metrics", func(c *echo.Context) error {
			s.cfg.Metrics.ServeHTTP(c.Response(), c.Request())
			return nil
		})
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, HealthResponse{Status: "ok", Version: s.cfg.Version})
}

func (s *Server) handleTitle(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "title service not configured", "", "")
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many requests", "", "rate_limited")
	}

	req, err := decodeJSON[TitleRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "", err.Error())
	}
	cfg, err := s.requestConfig(req)
	if err != nil {
		status, typ := errorStatus(err)
		return writeError(c, status, typ, err.Error(), errorParam(err), "")
	}

	if s.sem != nil {
		if !s.sem.TryAcquire(1) {
			return writeError(c, http.StatusServiceUnavailable, "overloaded_error", "server is busy, retry later", "", "overloaded")
		}
		defer s.sem.Release(1)
	}

	id := c.Request().Header.Get(headerRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Response().Header().Set(headerRequestID, id)
	ctx := titlegen.WithRequestID(c.Request().Context(), id)

	res, err := s.service.GenerateWith(ctx, req.Text, cfg)
	if err != nil {
		status, typ := errorStatus(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			s.log.Error("title request failed", "request_id", id, "error", err)
			msg = "internal server error"
		}
		return writeError(c, status, typ, msg, errorParam(err), "")
	}
	return writeJSON(c, http.StatusOK, TitleResponse{Title: res.Titles})
}

// requestConfig validates req and applies its overrides to the service
// defaults.
func (s *Server) requestConfig(req TitleRequest) (decode.Config, error) {
	cfg := s.service.Config()
	if strings.TrimSpace(req.Text) == "" {
		return cfg, newInvalidRequest("text", "missing required parameter 'text'")
	}
	if req.Sentences != nil {
		n := *req.Sentences
		if n <= 0 {
			return cfg, newInvalidRequest("sentences", "sentences must be a positive integer")
		}
		if s.cfg.MaxTitles > 0 && n > s.cfg.MaxTitles {
			return cfg, newInvalidRequest("sentences", "sentences exceeds the server limit")
		}
		cfg.BatchSize = n
	}
	if req.TopK != nil {
		cfg.TopK = *req.TopK
	}
	if req.TopP != nil {
		cfg.TopP = *req.TopP
	}
	if req.RepetitionPenalty != nil {
		cfg.RepetitionPenalty = *req.RepetitionPenalty
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
