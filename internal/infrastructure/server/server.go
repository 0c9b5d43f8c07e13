package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/config"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/toolmeta-harvester/internal/shared/types"
)

// RecordStore is the record surface the status API reads and requeues
type RecordStore interface {
	List(ctx context.Context, status types.CrawlStatus) ([]types.CrawlRecord, error)
	Requeue(ctx context.Context, url string) error
}

// Server exposes harvester health, metrics and crawl records over HTTP
type Server struct {
	router  *gin.Engine
	records RecordStore
	metrics *monitoring.Metrics
	logger  *zap.Logger
	addr    string
	started time.Time
}

// NewServer creates the status server
func NewServer(cfg *config.Config, records RecordStore, metrics *monitoring.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:  gin.New(),
		records: records,
		metrics: metrics,
		logger:  logger,
		addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		started: time.Now(),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(tracing.HTTPMiddleware(tracing.New(logger)))
	s.router.Use(monitoring.Middleware(metrics))

	s.router.GET("/health", s.health)
	if metrics != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := s.router.Group("/api")
	api.GET("/records", s.listRecords)
	api.GET("/records/summary", s.summary)
	api.POST("/records/requeue", s.requeue)

	return s
}

// Handler returns the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting status server", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down status server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"store":  s.records != nil,
	})
}

func (s *Server) listRecords(c *gin.Context) {
	if s.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no record store configured"})
		return
	}
	status, ok := parseStatus(c.Query("status"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + c.Query("status")})
		return
	}

	recs, err := s.records.List(c.Request.Context(), status)
	if err != nil {
		s.logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

func (s *Server) summary(c *gin.Context) {
	if s.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no record store configured"})
		return
	}
	recs, err := s.records.List(c.Request.Context(), "")
	if err != nil {
		s.logger.Error("Failed to list records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	byStatus := map[types.CrawlStatus]int{
		types.StatusPending:    0,
		types.StatusProcessing: 0,
		types.StatusCompleted:  0,
		types.StatusError:      0,
	}
	byCode := make(map[string]int)
	tools := 0
	for _, rec := range recs {
		byStatus[rec.Status]++
		if rec.ErrorCode != "" {
			byCode[rec.ErrorCode]++
		}
		tools += rec.ToolCount
	}
	c.JSON(http.StatusOK, gin.H{
		"total":       len(recs),
		"by_status":   byStatus,
		"error_codes": byCode,
		"tools":       tools,
	})
}

func (s *Server) requeue(c *gin.Context) {
	if s.records == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no record store configured"})
		return
	}
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url parameter required"})
		return
	}
	if err := s.records.Requeue(c.Request.Context(), url); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("Requeued record", zap.String("url", url))
	c.JSON(http.StatusOK, gin.H{"url": url, "status": types.StatusPending})
}

func parseStatus(raw string) (types.CrawlStatus, bool) {
	switch status := types.CrawlStatus(raw); status {
	case "", types.StatusPending, types.StatusProcessing, types.StatusCompleted, types.StatusError:
		return status, true
	}
	return "", false
}
