package carriage

import (
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/brctl/internal/auth"
	"github.com/danmuck/brctl/internal/node"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ node.Node = (*Service)(nil)

func (s *Service) NodeID() string { return s.cfg.CarriageID }

func (s *Service) Kind() string { return "carriage" }

func (s *Service) HTTPRouter() *gin.Engine { return s.router }

func (s *Service) buildRouter() *gin.Engine {
	r := node.NewRouter(s.Kind(), s.NodeID(), s.cfg.CorsOrigins)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"uptime":      time.Since(s.started).String(),
			"component":   "carriage",
			"carriage_id": s.cfg.CarriageID,
		})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Snapshot())
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ops := r.Group("/", auth.Guard(s.cfg.AdminToken))

	// Simulated photodiode; the change is applied by the event loop.
	ops.POST("/alignment/:state", func(c *gin.Context) {
		var aligned bool
		switch strings.ToLower(c.Param("state")) {
		case "on", "aligned":
			aligned = true
		case "off", "misaligned":
			aligned = false
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "state must be on or off"})
			return
		}
		if !s.post(c.Request.Context(), event{kind: eventAlign, aligned: aligned}) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "carriage loop unavailable"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"aligned": aligned})
	})
	return r
}
