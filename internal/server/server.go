package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/turnstilehq/turnstile/internal/engine"
	"github.com/turnstilehq/turnstile/internal/events"
	"github.com/turnstilehq/turnstile/internal/sweep"
	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
)

type (
	// Repository is the persistence surface the HTTP API needs beyond the
	// engine's own collaborators: forms, entries, and ordered step lists
	Repository interface {
		Form(ctx context.Context, id api.FormID) (*api.Form, error)
		PutForm(ctx context.Context, form *api.Form) error
		Entry(ctx context.Context, id api.EntryID) (*api.Entry, error)
		PutEntry(ctx context.Context, entry *api.Entry) error
		Steps(ctx context.Context, formID api.FormID) ([]*api.Step, error)
		PutSteps(
			ctx context.Context, formID api.FormID, steps []*api.Step,
		) error
		Step(
			ctx context.Context, formID api.FormID, stepID api.StepID,
		) (*api.Step, error)
	}

	// Server implements the HTTP API for the workflow service
	Server struct {
		engine  *engine.Engine
		repo    Repository
		hub     *events.Hub
		sweeper *sweep.Sweeper
		metrics *Metrics
		sockets util.Set[*Client]
		mu      sync.Mutex
	}
)

// NewServer creates a new HTTP API server
func NewServer(
	eng *engine.Engine, repo Repository, hub *events.Hub, sw *sweep.Sweeper,
) *Server {
	return &Server{
		engine:  eng,
		repo:    repo,
		hub:     hub,
		sweeper: sw,
		metrics: NewMetrics(),
		sockets: util.Set[*Client]{},
	}
}

// StartMetrics begins feeding the Prometheus collectors from the event hub
func (s *Server) StartMetrics(ctx context.Context) {
	go s.metrics.Run(ctx, s.hub)
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Metrics
	router.GET("/metrics", s.metrics.Handler())

	wf := router.Group("/workflow")
	{
		// Form and step configuration
		wf.POST("/form", s.createForm)
		wf.GET("/form/:formID", s.getForm)
		wf.GET("/form/:formID/steps", s.listSteps)
		wf.PUT("/form/:formID/steps", s.replaceSteps)

		// Entries
		wf.POST("/entry", s.createEntry)
		wf.GET("/entry/:entryID", s.getEntry)

		// Step lifecycle
		wf.POST("/form/:formID/entry/:entryID/step/:stepID/start",
			s.startStep)
		wf.POST("/form/:formID/entry/:entryID/step/:stepID/assignee",
			s.updateAssigneeStatus)
		wf.GET("/form/:formID/entry/:entryID/step/:stepID/status",
			s.getStepStatus)
		wf.GET("/form/:formID/entry/:entryID/step/:stepID/assignees",
			s.getStepAssignees)

		// WebSocket
		wf.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
