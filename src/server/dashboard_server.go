package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"trade-dashboard/src/interfaces"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/metrics"
	"trade-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

// DashboardServer is the browser-facing render sink: it keeps the latest
// frame, pushes every new one to websocket clients and serves the REST API.
type DashboardServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	controller interfaces.IController
	history    interfaces.IDatabase
	metrics    *metrics.Metrics

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	requests   chan clientRequest
	quit       chan struct{}
	hubOnce    sync.Once

	// Local cache
	latest     *models.MFrame
	link       models.LinkStatus
	stateMutex sync.RWMutex
}

var _ interfaces.IRenderer = (*DashboardServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewDashboardServer builds the server. history may be nil when storage is
// disabled.
func NewDashboardServer(cfg *models.MConfig, history interfaces.IDatabase, m *metrics.Metrics, logger *logger.Logger) *DashboardServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:  cfg,
		Logger:  logger,
		engine:  gin.New(),
		history: history,
		metrics: m,
		clients: make(map[*Client]struct{}),
		// Buffered so Render never blocks the pipeline loop
		broadcast:  make(chan interface{}, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		requests:   make(chan clientRequest, 16),
		quit:       make(chan struct{}),
		link:       models.LinkPoll,
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// SetController wires the operator endpoints to a running pipeline.
func (s *DashboardServer) SetController(ctrl interfaces.IController) {
	s.controller = ctrl
}

// Handler exposes the router, mainly for tests.
func (s *DashboardServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// REST API endpoints
	api := s.engine.Group("/api")
	api.GET("/view", s.getView)
	api.GET("/series", s.getSeries)
	api.GET("/status", s.getStatus)
	api.GET("/health", s.getHealth)
	api.GET("/history", s.getHistory)
	api.POST("/override", s.postOverride)
	api.POST("/refresh", s.postRefresh)

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves until Stop is called.
func (s *DashboardServer) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	s.StartHub()

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartHub runs the websocket hub loop. Start calls it; tests that only use
// Handler call it themselves.
func (s *DashboardServer) StartHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	return err
}

// -----------------------------------------------------------------------------
// Render sink
// -----------------------------------------------------------------------------

func (s *DashboardServer) Render(frame *models.MFrame) {
	s.stateMutex.Lock()
	s.latest = frame
	s.link = frame.Link
	s.stateMutex.Unlock()

	s.enqueue(frameMessage(frame))
}

func (s *DashboardServer) SetLinkStatus(status models.LinkStatus) {
	s.stateMutex.Lock()
	s.link = status
	s.stateMutex.Unlock()

	s.enqueue(linkMessage(status))
}

func (s *DashboardServer) enqueue(msg interface{}) {
	select {
	case s.broadcast <- msg:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update")
	}
}

// Latest returns the most recent frame, or nil before the first render.
func (s *DashboardServer) Latest() *models.MFrame {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latest
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashboardServer) getView(c *gin.Context) {
	frame := s.Latest()
	if frame == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot received yet"})
		return
	}
	c.JSON(http.StatusOK, frame)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getSeries(c *gin.Context) {
	frame := s.Latest()
	if frame == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot received yet"})
		return
	}

	rangeN, err := queryInt(c, "range", frame.Range)
	if err != nil || rangeN <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "range must be a positive integer"})
		return
	}

	series, summary := seriesFor(frame, rangeN)
	c.JSON(http.StatusOK, gin.H{
		"range":   rangeN,
		"series":  series,
		"summary": summary,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStatus(c *gin.Context) {
	s.stateMutex.RLock()
	frame, link := s.latest, s.link
	s.stateMutex.RUnlock()

	body := statusBody(frame, link)
	if s.controller != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if st, err := s.controller.Status(ctx); err == nil {
			body["pipeline"] = st
		}
	}
	c.JSON(http.StatusOK, body)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	var latestUpdate int64
	if s.latest != nil {
		latestUpdate = s.latest.RenderedAt
	}
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": latestUpdate,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history recording is disabled"})
		return
	}

	limit, err := queryInt(c, "limit", 100)
	if err != nil || limit <= 0 || limit > 10000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 10000"})
		return
	}

	samples, err := s.history.RecentSamples(limit)
	if err != nil {
		s.Logger.Error("History query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"samples": samples})
}

// -----------------------------------------------------------------------------

// postOverride handles ?push=off, the operator switch that forces polling for
// the rest of the session.
func (s *DashboardServer) postOverride(c *gin.Context) {
	if c.Query("push") != "off" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only push=off is supported"})
		return
	}
	if s.controller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}
	s.controller.ForcePollingOnly()
	c.JSON(http.StatusAccepted, gin.H{"push": "off"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) postRefresh(c *gin.Context) {
	if s.controller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline not running"})
		return
	}
	s.controller.RefreshNow()
	c.JSON(http.StatusAccepted, gin.H{"refresh": "queued"})
}
