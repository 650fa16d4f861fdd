package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/brctl/internal/auth"
	"github.com/danmuck/brctl/internal/node"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ node.Node = (*Service)(nil)

func (s *Service) NodeID() string { return s.cfg.ControllerID }

func (s *Service) Kind() string { return nodeKind }

func (s *Service) HTTPRouter() *gin.Engine { return s.router }

func (s *Service) buildRouter() *gin.Engine {
	r := node.NewRouter(s.Kind(), s.NodeID(), s.cfg.CorsOrigins)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "controller",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ops := r.Group("/", auth.Guard(s.cfg.AdminToken))

	r.GET("/carriages", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"carriages": s.controller.Registry().List()})
	})
	r.GET("/carriages/:id", func(c *gin.Context) {
		item, ok := s.controller.Registry().Lookup(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown carriage"})
			return
		}
		c.JSON(http.StatusOK, item)
	})
	ops.POST("/carriages/:id/commands/:action", func(c *gin.Context) {
		id := c.Param("id")
		action := c.Param("action")
		err := s.controller.Command(c.Request.Context(), id, action, c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"carriage": id, "action": action})
	})
	ops.POST("/carriages/:id/status", func(c *gin.Context) {
		id := c.Param("id")
		if err := s.controller.RequestStatus(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"carriage": id})
	})
	return r
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownCarriage):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidCommand):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNoAddress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
