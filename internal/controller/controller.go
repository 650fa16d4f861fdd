package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/transport"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownCarriage = errors.New("controller: unknown carriage")
	ErrNoAddress       = errors.New("controller: carriage has no address")
	ErrInvalidCommand  = errors.New("controller: invalid command")
)

const nodeKind = "controller"

// Controller answers carriage handshakes and status reports and sends
// commands. Safe for concurrent use.
type Controller struct {
	id       string
	out      transport.Sender
	registry *Registry
	seq      *session.Sequence
	logger   zerolog.Logger
}

func New(id string, out transport.Sender, registry *Registry, seq *session.Sequence) *Controller {
	if registry == nil {
		registry = NewRegistry()
	}
	if seq == nil {
		seq = session.NewSequence(nil)
	}
	return &Controller{
		id:       id,
		out:      out,
		registry: registry,
		seq:      seq,
		logger:   observability.NodeLogger(nodeKind, id),
	}
}

func (c *Controller) Registry() *Registry { return c.registry }

// Handle processes one datagram from a carriage.
func (c *Controller) Handle(ctx context.Context, dg transport.Datagram) {
	msg, err := protocol.Decode(dg.Payload)
	if err != nil {
		observability.RecordDecodeError(c.id)
		c.logger.Warn().Err(err).Str("from", addrString(dg)).Msg("controller.Controller.Handle dropped")
		return
	}
	observability.RecordMessage(c.id, observability.DirectionIn, string(msg.Type))
	from := addrString(dg)

	switch msg.Type {
	case protocol.MsgCarriageInit:
		item := c.registry.Register(msg.ClientID, from, msg.Status)
		c.logger.Info().
			Str("carriage", item.ID).
			Str("addr", item.Addr).
			Str("status", msg.Status).
			Msg("controller.Controller.Handle registered")
		c.reply(ctx, from, protocol.MsgAckInit, msg.ClientID)
	case protocol.MsgStatus:
		c.registry.RecordStatus(msg.ClientID, from, msg.Status)
		c.logger.Debug().
			Str("carriage", msg.ClientID).
			Str("status", msg.Status).
			Msg("controller.Controller.Handle status")
		c.reply(ctx, from, protocol.MsgAckStatus, msg.ClientID)
	case protocol.MsgNoInterpret:
		c.registry.Touch(msg.ClientID, from)
		c.logger.Info().Str("carriage", msg.ClientID).Msg("controller.Controller.Handle no interpretation")
	default:
		c.registry.Touch(msg.ClientID, from)
		warn := c.logger.Warn().Str("carriage", msg.ClientID).Str("message", string(msg.Type))
		if err := msg.Type.Validate(); err != nil {
			warn = warn.Err(err)
		}
		warn.Msg("controller.Controller.Handle unexpected message")
	}
}

func (c *Controller) reply(ctx context.Context, addr string, typ protocol.MessageType, carriageID string) {
	if err := c.send(ctx, addr, typ, carriageID, protocol.Fields{}); err != nil {
		c.logger.Warn().Err(err).Str("carriage", carriageID).Str("message", string(typ)).Msg("controller.Controller.reply")
	}
}

// Command sends EXEC{action} to a carriage. IRLD needs status ON or OFF.
func (c *Controller) Command(ctx context.Context, carriageID, action, status string) error {
	parsed, err := protocol.ParseAction(action)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	fields := protocol.Fields{Action: string(parsed)}
	if parsed == protocol.ActionIRLED {
		switch strings.ToUpper(strings.TrimSpace(status)) {
		case protocol.IRStatusOn, protocol.IRStatusOff:
			fields.Status = strings.ToUpper(strings.TrimSpace(status))
		default:
			return fmt.Errorf("%w: %s needs status ON or OFF", ErrInvalidCommand, parsed)
		}
	}
	addr, err := c.addressOf(carriageID)
	if err != nil {
		return err
	}
	if err := c.send(ctx, addr, protocol.MsgExec, carriageID, fields); err != nil {
		return err
	}
	c.logger.Info().
		Str("carriage", carriageID).
		Str("action", fields.Action).
		Str("status", fields.Status).
		Msg("controller.Controller.Command")
	return nil
}

// RequestStatus sends STRQ to a carriage.
func (c *Controller) RequestStatus(ctx context.Context, carriageID string) error {
	addr, err := c.addressOf(carriageID)
	if err != nil {
		return err
	}
	return c.send(ctx, addr, protocol.MsgStatusReq, carriageID, protocol.Fields{})
}

// Heartbeat sends STRQ to every registered carriage and returns how many
// requests went out.
func (c *Controller) Heartbeat(ctx context.Context) int {
	sent := 0
	for _, item := range c.registry.Registered() {
		if err := c.RequestStatus(ctx, item.ID); err != nil {
			c.logger.Warn().Err(err).Str("carriage", item.ID).Msg("controller.Controller.Heartbeat")
			continue
		}
		sent++
	}
	return sent
}

func (c *Controller) addressOf(carriageID string) (string, error) {
	item, ok := c.registry.Lookup(carriageID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCarriage, carriageID)
	}
	if strings.TrimSpace(item.Addr) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAddress, carriageID)
	}
	return item.Addr, nil
}

func (c *Controller) send(ctx context.Context, addr string, typ protocol.MessageType, carriageID string, fields protocol.Fields) error {
	fields.Sequence = protocol.Seq(c.seq.Next())
	payload, err := protocol.Encode(protocol.ClientController, typ, carriageID, fields)
	if err != nil {
		return err
	}
	if err := c.out.Send(ctx, addr, payload); err != nil {
		return fmt.Errorf("controller: send %s to %s: %w", typ, carriageID, err)
	}
	observability.RecordMessage(c.id, observability.DirectionOut, string(typ))
	return nil
}

func addrString(dg transport.Datagram) string {
	if dg.From == nil {
		return ""
	}
	return dg.From.String()
}
