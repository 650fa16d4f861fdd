package actuator

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

func (s *Service) NodeID() string { return s.cfg.ActuatorID }

func (s *Service) Kind() string { return "actuator" }

func (s *Service) HTTPRouter() *gin.Engine { return s.router }

func (s *Service) buildRouter() *gin.Engine {
	r := node.NewRouter(s.Kind(), s.NodeID(), s.cfg.CorsOrigins)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": "actuator",
			"silent":    s.simulator.Silent(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ops := r.Group("/", auth.Guard(s.cfg.AdminToken))
	r.GET("/commands", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"commands": s.simulator.Recent()})
	})

	ops.POST("/silent/:state", func(c *gin.Context) {
		on, ok := parseSwitch(c.Param("state"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state must be on or off"})
			return
		}
		s.simulator.SetSilent(on)
		c.JSON(http.StatusOK, gin.H{"silent": on})
	})

	ops.POST("/report/hazard", func(c *gin.Context) {
		s.respondReport(c, s.simulator.ReportHazard(c.Request.Context(), s.cfg.CarriageID))
	})
	ops.POST("/report/alignment/:state", func(c *gin.Context) {
		on, ok := parseSwitch(c.Param("state"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state must be on or off"})
			return
		}
		s.respondReport(c, s.simulator.ReportAlignment(c.Request.Context(), s.cfg.CarriageID, on))
	})
	ops.POST("/report/status", func(c *gin.Context) {
		status := strings.TrimSpace(c.Query("status"))
		if status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status query parameter required"})
			return
		}
		s.respondReport(c, s.simulator.ReportStatus(c.Request.Context(), s.cfg.CarriageID, status))
	})
	return r
}

func (s *Service) respondReport(c *gin.Context, err error) {
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"carriage": s.cfg.CarriageID})
}

func parseSwitch(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	default:
		return false, false
	}
}
