package carriage

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/danmuck/brctl/internal/node"
	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var ErrInvalidStatusInterval = errors.New("carriage: invalid status log interval")

// ServiceConfig configures one carriage control proxy process.
type ServiceConfig struct {
	CarriageID string
	IDPrefix   string
	// ListenAddr is the controller-facing UDP bind.
	ListenAddr     string
	ControllerAddr string
	ActuatorAddr   string
	// ActuatorListenAddr is the bind the actuator replies to.
	ActuatorListenAddr string
	AdminListenAddr    string
	CorsOrigins        []string
	AdminToken         string
	StatusLogInterval  time.Duration
	Session            session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CarriageID:         "BR01",
		IDPrefix:           protocol.DefaultIDPrefix,
		ListenAddr:         ":3001",
		ControllerAddr:     "127.0.0.1:2000",
		ActuatorAddr:       "127.0.0.1:3012",
		ActuatorListenAddr: ":0",
		AdminListenAddr:    "",
		StatusLogInterval:  10 * time.Second,
		Session:            session.DefaultConfig(),
	}
}

func (c ServiceConfig) carriageConfig() Config {
	return Config{
		CarriageID:     c.CarriageID,
		IDPrefix:       c.IDPrefix,
		ControllerAddr: c.ControllerAddr,
		ActuatorAddr:   c.ActuatorAddr,
		Session:        c.Session,
	}
}

type eventKind int

const (
	eventController eventKind = iota
	eventActuator
	eventAlign
)

// event is one unit of work for the carriage loop.
type event struct {
	kind    eventKind
	payload []byte
	msg     protocol.Message
	aligned bool
}

// Service runs one carriage: both UDP endpoints, the handshake ticker and
// the event loop that owns all carriage state.
type Service struct {
	cfg      ServiceConfig
	logger   zerolog.Logger
	carriage *Carriage
	ctrl     *transport.Endpoint
	act      *transport.Endpoint
	events   chan event
	// retry holds at most one handshake tick, so ticks that arrive while
	// the loop is busy collapse into one.
	retry    chan struct{}
	router   *gin.Engine
	started  time.Time

	snapMu sync.RWMutex
	snap   Snapshot

	adminReady chan net.Addr
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg.Session = cfg.Session.WithDefaults()
	if strings.TrimSpace(cfg.IDPrefix) == "" {
		cfg.IDPrefix = protocol.DefaultIDPrefix
	}
	return &Service{
		cfg:    cfg,
		logger: observability.NodeLogger("carriage", cfg.CarriageID),
		events: make(chan event, cfg.Session.EventQueueSize),
		retry:  make(chan struct{}, 1),
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

// bootstrap validates config and binds both UDP endpoints.
func (s *Service) bootstrap() error {
	if s.cfg.StatusLogInterval <= 0 {
		return ErrInvalidStatusInterval
	}
	if err := s.cfg.carriageConfig().Validate(); err != nil {
		return err
	}
	ctrl, err := transport.Listen(s.cfg.ListenAddr, s.cfg.Session)
	if err != nil {
		return err
	}
	act, err := transport.Listen(s.cfg.ActuatorListenAddr, s.cfg.Session)
	if err != nil {
		_ = ctrl.Close()
		return err
	}
	c, err := New(s.cfg.carriageConfig(), Deps{
		Controller: ctrl,
		Actuator:   act,
		Logger:     &s.logger,
	})
	if err != nil {
		_ = ctrl.Close()
		_ = act.Close()
		return err
	}
	s.ctrl, s.act, s.carriage = ctrl, act, c
	s.router = s.buildRouter()
	s.started = time.Now()
	s.publish()

	s.logger.Info().
		Str("listen", ctrl.LocalAddr().String()).
		Str("actuator_listen", act.LocalAddr().String()).
		Str("controller", s.cfg.ControllerAddr).
		Str("actuator", s.cfg.ActuatorAddr).
		Msg("carriage.Service.bootstrap ready")
	return nil
}

// serve connects to the controller and runs the event loop until ctx ends.
func (s *Service) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	handshake := s.carriage.Handshake()
	defer func() {
		cancel()
		handshake.Stop()
	}()

	recvErr := make(chan error, 2)
	go func() {
		recvErr <- s.ctrl.Serve(ctx, func(dg transport.Datagram) {
			s.post(ctx, event{kind: eventController, payload: dg.Payload})
		})
	}()
	go func() {
		recvErr <- s.act.Serve(ctx, func(dg transport.Datagram) {
			s.onActuator(ctx, dg)
		})
	}()
	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminListenAddr) != "" {
		go func() {
			adminErr <- node.Serve(ctx, s.cfg.AdminListenAddr, s.router, s.adminReady)
		}()
	}

	if err := s.carriage.Connect(ctx); err != nil {
		return err
	}
	handshake.Start(ctx, func() {
		select {
		case s.retry <- struct{}{}:
		default:
		}
	})
	s.publish()

	ticker := time.NewTicker(s.cfg.StatusLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("carriage.Service.serve shutdown")
			return nil
		case err := <-recvErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
		case err := <-adminErr:
			if err != nil {
				return err
			}
		case ev := <-s.events:
			s.apply(ctx, ev)
			s.publish()
		case <-s.retry:
			s.carriage.RetryHandshake(ctx)
			s.publish()
		case <-ticker.C:
			snap := s.Snapshot()
			s.logger.Info().
				Str("state", snap.State).
				Str("status", snap.Status).
				Str("handshake", snap.Handshake).
				Bool("doors_open", snap.DoorsOpen).
				Bool("aligned", snap.Aligned).
				Str("last_neighbor", snap.LastNeighbor).
				Msg("carriage.Service.heartbeat")
		}
	}
}

func (s *Service) apply(ctx context.Context, ev event) {
	switch ev.kind {
	case eventController:
		s.carriage.HandleDatagram(ctx, ev.payload)
	case eventActuator:
		s.carriage.HandleActuator(ctx, ev.msg)
	case eventAlign:
		s.carriage.SetAligned(ev.aligned)
	}
}

// onActuator runs on the actuator receive goroutine. Acks are resolved here
// because the loop may be blocked waiting for one.
func (s *Service) onActuator(ctx context.Context, dg transport.Datagram) {
	if s.carriage.Bridge().ObserveAck(dg.Payload) {
		return
	}
	msg, err := protocol.Decode(dg.Payload)
	if err != nil {
		observability.RecordDecodeError(s.cfg.CarriageID)
		s.logger.Warn().Err(err).Str("from", dg.From.String()).Msg("carriage.Service.onActuator dropped")
		return
	}
	s.post(ctx, event{kind: eventActuator, msg: msg})
}

func (s *Service) post(ctx context.Context, ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) publish() {
	snap := s.carriage.Snapshot()
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

// Snapshot returns the state published after the last handled event.
func (s *Service) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// ListenAddr is the bound controller-facing address.
func (s *Service) ListenAddr() net.Addr {
	if s.ctrl == nil {
		return nil
	}
	return s.ctrl.LocalAddr()
}

// ActuatorListenAddr is the bound actuator-facing address.
func (s *Service) ActuatorListenAddr() net.Addr {
	if s.act == nil {
		return nil
	}
	return s.act.LocalAddr()
}

func (s *Service) close() {
	if s.ctrl != nil {
		_ = s.ctrl.Close()
	}
	if s.act != nil {
		_ = s.act.Close()
	}
}
