package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rahul/sutra/internal/events"
	"github.com/rahul/sutra/internal/store"
)

// Launcher starts a run for a prompt and returns its id.
type Launcher interface {
	Launch(prompt string) string
}

// Server exposes the engine over REST plus a WebSocket event stream.
type Server struct {
	launcher Launcher
	store    *store.RunStore
	hub      *events.Hub
}

func NewServer(launcher Launcher, st *store.RunStore, hub *events.Hub) *Server {
	return &Server{launcher: launcher, store: st, hub: hub}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints.
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

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

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/tasks", s.submitTask)
		api.GET("/runs", s.listRuns)
		api.GET("/runs/:id", s.getRun)
		api.GET("/schedules", s.listSchedules)
		api.POST("/schedules", s.addSchedule)
		api.DELETE("/schedules/:id", s.deleteSchedule)
	}

	router.GET("/ws/:client_id", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type taskRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) submitTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	id := s.launcher.Launch(req.Prompt)
	c.JSON(http.StatusOK, gin.H{"status": "Task received", "task_id": id})
}

func (s *Server) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getRun(c *gin.Context) {
	run, steps, err := s.store.GetRun(c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if steps == nil {
		steps = []store.StepRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "steps": steps})
}

type scheduleRequest struct {
	Prompt          string `json:"prompt"`
	IntervalSeconds int    `json:"interval_seconds"`
}

func (s *Server) addSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if req.IntervalSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval_seconds must not be negative"})
		return
	}

	if err := s.store.AddSchedule(req.Prompt, req.IntervalSeconds); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "Schedule added"})
}

func (s *Server) listSchedules(c *gin.Context) {
	schedules, err := s.store.ListSchedules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if schedules == nil {
		schedules = []store.Schedule{}
	}
	c.JSON(http.StatusOK, schedules)
}

func (s *Server) deleteSchedule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	if err := s.store.DeleteSchedule(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Schedule deleted"})
}
