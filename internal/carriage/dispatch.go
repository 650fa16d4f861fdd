package carriage

import (
	"context"
	"strings"
	"time"

	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol"
)

// HandleDatagram decodes one controller-path payload and dispatches it.
// Undecodable payloads are dropped.
func (c *Carriage) HandleDatagram(ctx context.Context, payload []byte) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		observability.RecordDecodeError(c.id)
		c.logger.Warn().Err(err).Int("bytes", len(payload)).Msg("carriage.Carriage.HandleDatagram dropped")
		return
	}
	c.Handle(ctx, msg)
}

// Handle dispatches one controller-path message, then lets the neighbor
// model recompute the speed regime.
func (c *Carriage) Handle(ctx context.Context, msg protocol.Message) {
	observability.RecordMessage(c.id, observability.DirectionIn, string(msg.Type))
	event := c.logger.Debug().
		Str("message", string(msg.Type)).
		Str("from", msg.ClientID).
		Str("action", msg.Action).
		Str("status", msg.Status)
	if seq, ok := msg.SequenceNumber(); ok {
		event = event.Int64("seq", seq)
	}
	event.Msg("carriage.Carriage.Handle")

	switch msg.Type {
	case protocol.MsgExec:
		c.handleExec(ctx, msg)
	case protocol.MsgAckInit:
		if c.handshake.Acknowledge() {
			c.logger.Info().Str("from", msg.ClientID).Msg("carriage.Carriage.Handle handshake acknowledged")
		}
	case protocol.MsgStatusReq:
		c.sendStatus(ctx, c.status)
	case protocol.MsgAckStatus, protocol.MsgNoInterpret:
	default:
		warn := c.logger.Warn().Str("from", msg.ClientID)
		if err := msg.Type.Validate(); err != nil {
			warn = warn.Err(err)
		} else {
			warn = warn.Str("message", string(msg.Type))
		}
		warn.Msg("carriage.Carriage.Handle not interpreted")
		c.replyNoInterpretation(ctx, msg)
	}

	c.coordinate(msg)
	c.updatedAt = time.Now()
}

func (c *Carriage) handleExec(ctx context.Context, msg protocol.Message) {
	action, err := protocol.ParseAction(msg.Action)
	if err != nil {
		c.logger.Warn().Err(err).Str("from", msg.ClientID).Msg("carriage.Carriage.handleExec dropped")
		return
	}
	if action == protocol.ActionIRLED && strings.TrimSpace(msg.Status) == "" {
		c.logger.Warn().Str("action", string(action)).Msg("carriage.Carriage.handleExec missing status")
		return
	}

	c.bridge.Forward(ctx, msg.Raw)
	out := c.machine.Apply(action, msg.Status)
	if out.Changed() || out.DoorsChanged {
		c.logger.Info().
			Str("action", string(action)).
			Str("from_state", out.From.String()).
			Str("to_state", out.To.String()).
			Bool("doors_open", c.machine.DoorsOpen()).
			Msg("carriage.Carriage.handleExec")
	}
	if out.NotifyActuator {
		c.confirmHazardStop(ctx)
	}
	c.status = string(action)
	c.sendStatus(ctx, c.status)
}

func (c *Carriage) confirmHazardStop(ctx context.Context) {
	result := c.bridge.SendAndAwaitAck(ctx, protocol.StatusHazardStopped)
	c.logger.Info().Str("result", result.String()).Msg("carriage.Carriage.confirmHazardStop")
}

// replyNoInterpretation answers an unrecognized message type. The reply
// echoes the sender's sequence number plus one and does not advance ours.
func (c *Carriage) replyNoInterpretation(ctx context.Context, msg protocol.Message) {
	fields := protocol.Fields{}
	if seq, ok := msg.SequenceNumber(); ok {
		fields.Sequence = protocol.Seq(seq + 1)
	}
	if err := c.sendController(ctx, protocol.MsgNoInterpret, fields); err != nil {
		c.logger.Warn().Err(err).Str("message", string(msg.Type)).Msg("carriage.Carriage.replyNoInterpretation")
	}
}

func (c *Carriage) coordinate(msg protocol.Message) {
	if _, err := c.neighbors.Observe(msg.ClientID); err != nil {
		c.logger.Warn().Err(err).Str("from", msg.ClientID).Msg("carriage.Carriage.coordinate skipped")
		return
	}
	// The regime applies in every state, Stopped included.
	c.machine.SetRegime(c.neighbors.Regime())
}

// HandleActuator processes one decoded non-ack record from the actuator.
func (c *Carriage) HandleActuator(ctx context.Context, msg protocol.Message) {
	observability.RecordMessage(c.id, observability.DirectionIn, "ACTUATOR_"+string(msg.Type))
	c.updatedAt = time.Now()
	switch {
	case msg.Action == string(protocol.ActionHazard):
		c.machine.Apply(protocol.ActionHazard, "")
		c.logger.Warn().Str("from", msg.ClientID).Msg("carriage.Carriage.HandleActuator hazard detected")
		c.confirmHazardStop(ctx)
		c.status = string(protocol.ActionHazard)
		c.sendStatus(ctx, c.status)
	case msg.Action == protocol.ReportAligned:
		c.machine.SetAligned(true)
	case msg.Action == protocol.ReportMisaligned:
		c.machine.SetAligned(false)
	case strings.TrimSpace(msg.Status) != "":
		c.status = msg.Status
		c.sendStatus(ctx, c.status)
	default:
		c.logger.Warn().
			Str("message", string(msg.Type)).
			Str("action", msg.Action).
			Msg("carriage.Carriage.HandleActuator unhandled")
	}
}
