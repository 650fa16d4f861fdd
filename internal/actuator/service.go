package actuator

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

var ErrInvalidActuatorID = errors.New("actuator: invalid actuator id")

type ServiceConfig struct {
	ActuatorID string
	// CarriageID is stamped on reports sent to the carriage.
	CarriageID      string
	ListenAddr      string
	CarriageAddr    string
	AdminListenAddr string
	CorsOrigins     []string
	AdminToken      string
	Silent          bool
	AckFormat       AckFormat
	RecentLimit     int
	Session         session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ActuatorID:  "ESP01",
		CarriageID:  "BR01",
		ListenAddr:  ":3012",
		AckFormat:   AckRecord,
		RecentLimit: 32,
		Session:     session.DefaultConfig(),
	}
}

type Service struct {
	cfg       ServiceConfig
	logger    zerolog.Logger
	endpoint  *transport.Endpoint
	simulator *Simulator
	router    *gin.Engine
	started   time.Time

	adminReady chan net.Addr
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg.Session = cfg.Session.WithDefaults()
	return &Service{
		cfg:    cfg,
		logger: observability.NodeLogger("actuator", cfg.ActuatorID),
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
	if strings.TrimSpace(s.cfg.ActuatorID) == "" {
		return ErrInvalidActuatorID
	}
	ep, err := transport.Listen(s.cfg.ListenAddr, s.cfg.Session)
	if err != nil {
		return err
	}
	sim := NewSimulator(s.cfg.ActuatorID, ep, s.cfg.AckFormat, s.cfg.RecentLimit)
	sim.silent.Store(s.cfg.Silent)
	if addr := strings.TrimSpace(s.cfg.CarriageAddr); addr != "" {
		to, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			_ = ep.Close()
			return err
		}
		sim.SetCarriage(to)
	}
	s.endpoint = ep
	s.simulator = sim
	s.router = s.buildRouter()
	s.started = time.Now()
	s.logger.Info().
		Str("listen", ep.LocalAddr().String()).
		Bool("silent", s.cfg.Silent).
		Str("ack_format", string(s.cfg.AckFormat)).
		Msg("actuator.Service.bootstrap ready")
	return nil
}

func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminListenAddr) != "" {
		go func() {
			adminErr <- node.Serve(ctx, s.cfg.AdminListenAddr, s.router, s.adminReady)
		}()
	}
	recvErr := make(chan error, 1)
	go func() {
		recvErr <- s.endpoint.Serve(ctx, func(dg transport.Datagram) {
			s.simulator.Handle(ctx, dg.Payload, dg.From)
		})
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("actuator.Service.serve shutdown")
		return nil
	case err := <-recvErr:
		return err
	case err := <-adminErr:
		return err
	}
}

func (s *Service) Simulator() *Simulator { return s.simulator }

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
