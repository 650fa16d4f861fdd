package controller

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/brctl/internal/node"
	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var ErrInvalidControllerID = errors.New("controller: invalid controller id")

// ServiceConfig configures the controller process.
type ServiceConfig struct {
	ControllerID    string
	ListenAddr      string
	AdminListenAddr string
	CorsOrigins     []string
	// AdminToken guards the command routes when set.
	AdminToken string
	// Heartbeat enables the periodic STRQ sweep.
	Heartbeat bool
	Fleet     []Preset
	Session   session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ControllerID: "MCP",
		ListenAddr:   ":2000",
		Heartbeat:    true,
		Session:      session.DefaultConfig(),
	}
}

// Service runs the controller's UDP endpoint, heartbeat and admin surface.
type Service struct {
	cfg        ServiceConfig
	logger     zerolog.Logger
	endpoint   *transport.Endpoint
	controller *Controller
	router     *gin.Engine
	started    time.Time

	adminReady chan net.Addr
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg.Session = cfg.Session.WithDefaults()
	return &Service{
		cfg:    cfg,
		logger: observability.NodeLogger(nodeKind, cfg.ControllerID),
	}
}

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext blocks until ctx ends.
func (s *Service) RunContext(ctx context.Context) error {
	if err := s.bootstrap(); err != nil {
		return err
	}
	defer s.close()
	return s.serve(ctx)
}

func (s *Service) bootstrap() error {
	if strings.TrimSpace(s.cfg.ControllerID) == "" {
		return ErrInvalidControllerID
	}
	ep, err := transport.Listen(s.cfg.ListenAddr, s.cfg.Session)
	if err != nil {
		return err
	}
	registry := NewRegistry()
	for _, p := range s.cfg.Fleet {
		registry.Preset(p)
	}
	s.endpoint = ep
	s.controller = New(s.cfg.ControllerID, ep, registry, nil)
	s.router = s.buildRouter()
	s.started = time.Now()
	s.logger.Info().
		Str("listen", ep.LocalAddr().String()).
		Int("fleet", len(s.cfg.Fleet)).
		Msg("controller.Service.bootstrap ready")
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- s.endpoint.Serve(ctx, func(dg transport.Datagram) {
			s.controller.Handle(ctx, dg)
		})
	}()
	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminListenAddr) != "" {
		go func() {
			adminErr <- node.Serve(ctx, s.cfg.AdminListenAddr, s.router, s.adminReady)
		}()
	}

	var heartbeat <-chan time.Time
	if s.cfg.Heartbeat {
		ticker := time.NewTicker(s.cfg.Session.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("controller.Service.serve shutdown")
			return nil
		case err := <-recvErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
		case err := <-adminErr:
			if err != nil {
				return err
			}
		case <-heartbeat:
			sent := s.controller.Heartbeat(ctx)
			s.logger.Debug().
				Int("requests", sent).
				Int("carriages", len(s.controller.Registry().List())).
				Msg("controller.Service.heartbeat")
		}
	}
}

// Controller exposes the running controller for operator tooling.
func (s *Service) Controller() *Controller {
	return s.controller
}

func (s *Service) ListenAddr() net.Addr {
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.LocalAddr()
}

func (s *Service) close() {
	if s.endpoint != nil {
		_ = s.endpoint.Close()
	}
}
