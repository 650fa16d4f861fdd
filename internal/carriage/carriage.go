package carriage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/transport"
	"github.com/rs/zerolog"
)

var ErrInvalidConfig = errors.New("carriage: invalid config")

// Config is what one carriage needs beyond its sockets.
type Config struct {
	CarriageID     string
	IDPrefix       string
	ControllerAddr string
	ActuatorAddr   string
	Session        session.Config
}

// Deps are the collaborators a Carriage sends through.
type Deps struct {
	Controller transport.Sender
	Actuator   transport.Sender
	// Forward relays EXECs to the actuator. Nil uses a oneshot socket per
	// send so relay acks land nowhere.
	Forward    transport.Sender
	Indicator  IndicatorDriver
	Rand       *rand.Rand
	Logger     *zerolog.Logger
}

// Carriage is the per-carriage context: state machine, neighbor model,
// handshake, actuator bridge and counters. Everything except the handshake
// phase and the bridge's ack path must be touched from one goroutine.
type Carriage struct {
	id             string
	controllerAddr string
	controller     transport.Sender

	machine   *StateMachine
	neighbors *Neighbors
	handshake *Handshake
	bridge    *ActuatorBridge
	seq       *session.Sequence

	status    string
	lastInit  time.Time
	updatedAt time.Time
	logger    zerolog.Logger
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.CarriageID) == "" {
		return fmt.Errorf("%w: carriage id required", ErrInvalidConfig)
	}
	prefix := c.IDPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = protocol.DefaultIDPrefix
	}
	if _, err := protocol.ParseOrdinal(c.CarriageID, prefix); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if strings.TrimSpace(c.ControllerAddr) == "" {
		return fmt.Errorf("%w: controller address required", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.ActuatorAddr) == "" {
		return fmt.Errorf("%w: actuator address required", ErrInvalidConfig)
	}
	return nil
}

func New(cfg Config, deps Deps) (*Carriage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Controller == nil || deps.Actuator == nil {
		return nil, fmt.Errorf("%w: controller and actuator senders required", ErrInvalidConfig)
	}
	sc := cfg.Session.WithDefaults()
	neighbors, err := NewNeighbors(cfg.CarriageID, cfg.IDPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	logger := observability.NodeLogger("carriage", cfg.CarriageID)
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	indicator := deps.Indicator
	if indicator == nil {
		indicator = NewLogIndicator(logger)
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	c := &Carriage{
		id:             cfg.CarriageID,
		controllerAddr: cfg.ControllerAddr,
		controller:     deps.Controller,
		neighbors:      neighbors,
		handshake:      NewHandshake(sc.HandshakeInterval),
		seq:            session.NewSequence(rng),
		status:         protocol.DefaultStatus,
		updatedAt:      time.Now(),
		logger:         logger,
	}
	forward := deps.Forward
	if forward == nil {
		forward = transport.NewOneshot(sc)
	}
	c.bridge = NewActuatorBridge(cfg.CarriageID, cfg.ActuatorAddr, deps.Actuator, forward, session.NewSequence(rng), sc.AckTimeout, logger)
	c.machine = NewStateMachine(indicator)
	c.machine.OnTransition(func(s State) {
		observability.RecordTransition(c.id, s.String())
	})
	return c, nil
}

func (c *Carriage) ID() string { return c.id }

func (c *Carriage) State() State { return c.machine.State() }

// Status is the cached status reported in CCIN and STRQ replies.
func (c *Carriage) Status() string { return c.status }

func (c *Carriage) Handshake() *Handshake { return c.handshake }

func (c *Carriage) Bridge() *ActuatorBridge { return c.bridge }

// SetAligned records a photodiode reading from the actuator or admin surface.
func (c *Carriage) SetAligned(aligned bool) {
	c.machine.SetAligned(aligned)
	c.updatedAt = time.Now()
}

// Connect sends the first CCIN and moves Started -> Connected. A send
// failure leaves the carriage in Started so the caller may retry.
func (c *Carriage) Connect(ctx context.Context) error {
	if err := c.machine.CanConnect(); err != nil {
		return err
	}
	if err := c.sendInit(ctx); err != nil {
		return err
	}
	if err := c.machine.Connect(); err != nil {
		return err
	}
	c.updatedAt = time.Now()
	c.logger.Info().Str("controller", c.controllerAddr).Msg("carriage.Carriage.Connect")
	return nil
}

// RetryHandshake sends another CCIN while the controller has not answered.
// A retry less than half an interval after the previous CCIN is skipped, so
// a late tick and the next regular one never go out back to back.
func (c *Carriage) RetryHandshake(ctx context.Context) bool {
	if !c.handshake.Awaiting() {
		return false
	}
	if since := time.Since(c.lastInit); !c.lastInit.IsZero() && since < c.handshake.Interval()/2 {
		c.logger.Debug().Dur("since", since).Msg("carriage.Carriage.RetryHandshake coalesced")
		return false
	}
	if err := c.sendInit(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("carriage.Carriage.RetryHandshake")
		return false
	}
	return true
}

func (c *Carriage) sendInit(ctx context.Context) error {
	err := c.sendController(ctx, protocol.MsgCarriageInit, protocol.Fields{
		Sequence: protocol.Seq(c.seq.Next()),
		Status:   c.status,
	})
	if err == nil {
		c.lastInit = time.Now()
	}
	return err
}

func (c *Carriage) sendStatus(ctx context.Context, status string) {
	err := c.sendController(ctx, protocol.MsgStatus, protocol.Fields{
		Sequence: protocol.Seq(c.seq.Next()),
		Status:   status,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("status", status).Msg("carriage.Carriage.sendStatus")
	}
}

func (c *Carriage) sendController(ctx context.Context, typ protocol.MessageType, fields protocol.Fields) error {
	payload, err := protocol.Encode(protocol.ClientCCP, typ, c.id, fields)
	if err != nil {
		return err
	}
	if err := c.controller.Send(ctx, c.controllerAddr, payload); err != nil {
		return fmt.Errorf("carriage: send %s: %w", typ, err)
	}
	observability.RecordMessage(c.id, observability.DirectionOut, string(typ))
	c.logger.Debug().
		Str("message", string(typ)).
		Str("action", fields.Action).
		Str("status", fields.Status).
		Msg("carriage.Carriage.sendController")
	return nil
}

// Snapshot is a point-in-time copy of carriage state for the admin surface.
type Snapshot struct {
	CarriageID   string    `json:"carriage_id"`
	State        string    `json:"state"`
	DoorsOpen    bool      `json:"doors_open"`
	Aligned      bool      `json:"aligned"`
	IRLED        bool      `json:"ir_led"`
	Status       string    `json:"status"`
	Handshake    string    `json:"handshake"`
	InFront      bool      `json:"in_front"`
	Behind       bool      `json:"behind"`
	LastNeighbor string    `json:"last_neighbor,omitempty"`
	NextSequence int64     `json:"next_sequence"`
	PendingAcks  int       `json:"pending_acks"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Carriage) Snapshot() Snapshot {
	rel := c.neighbors.Relation()
	return Snapshot{
		CarriageID:   c.id,
		State:        c.machine.State().String(),
		DoorsOpen:    c.machine.DoorsOpen(),
		Aligned:      c.machine.Aligned(),
		IRLED:        c.machine.IRLED(),
		Status:       c.status,
		Handshake:    c.handshake.Phase().String(),
		InFront:      rel.InFront,
		Behind:       rel.Behind,
		LastNeighbor: c.neighbors.Last(),
		NextSequence: c.seq.Peek(),
		PendingAcks:  len(c.bridge.Pending()),
		UpdatedAt:    c.updatedAt,
	}
}
