package carriage

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrAckTimeout = errors.New("carriage: actuator ack timeout")

type AckResult int

const (
	AckReceived AckResult = iota
	NoAck
)

func (r AckResult) String() string {
	if r == AckReceived {
		return "ack"
	}
	return "no_ack"
}

// ActuatorBridge is the carriage's link to its actuator node. Status
// confirmations go out on out, whose replies feed ObserveAck. Relayed EXECs
// go out on forward, which must use a different source address so the
// actuator's acks for them never reach a pending wait.
type ActuatorBridge struct {
	carriageID string
	addr       string
	out        transport.Sender
	forward    transport.Sender
	seq        *session.Sequence
	timeout    time.Duration
	logger     zerolog.Logger

	pending *session.AckOutbox
	acks    chan struct{}
}

func NewActuatorBridge(carriageID, addr string, out, forward transport.Sender, seq *session.Sequence, timeout time.Duration, logger zerolog.Logger) *ActuatorBridge {
	if seq == nil {
		seq = session.NewSequence(nil)
	}
	if timeout <= 0 {
		timeout = session.DefaultConfig().AckTimeout
	}
	return &ActuatorBridge{
		carriageID: carriageID,
		addr:       addr,
		out:        out,
		forward:    forward,
		seq:        seq,
		timeout:    timeout,
		logger:     logger.With().Str("component", "actuator_bridge").Logger(),
		pending:    session.NewAckOutbox(),
		acks:       make(chan struct{}, 1),
	}
}

// Forward relays raw to the actuator. Failures are logged only.
func (b *ActuatorBridge) Forward(ctx context.Context, raw []byte) {
	if len(raw) == 0 {
		return
	}
	if b.forward == nil {
		b.logger.Warn().Str("addr", b.addr).Msg("carriage.ActuatorBridge.Forward no relay sender")
		return
	}
	if err := b.forward.Send(ctx, b.addr, raw); err != nil {
		b.logger.Warn().Err(err).Str("addr", b.addr).Msg("carriage.ActuatorBridge.Forward failed")
		return
	}
	observability.RecordMessage(b.carriageID, observability.DirectionOut, "FORWARD")
	b.logger.Debug().Str("addr", b.addr).Int("bytes", len(raw)).Msg("carriage.ActuatorBridge.Forward")
}

// SendAndAwaitAck sends STAT{status} and blocks until the actuator answers,
// the ack timeout fires or ctx ends.
func (b *ActuatorBridge) SendAndAwaitAck(ctx context.Context, status string) AckResult {
	select {
	case <-b.acks:
	default:
	}

	seq := b.seq.Next()
	sentAt := time.Now()
	item := session.PendingAck{
		ID:       uuid.NewString(),
		Status:   status,
		Sequence: seq,
		SentAt:   sentAt,
		Deadline: sentAt.Add(b.timeout),
	}
	b.pending.Upsert(item)
	defer b.pending.Remove(item.ID)

	result := b.await(ctx, item)
	observability.RecordActuatorAck(b.carriageID, result.String(), time.Since(sentAt))
	return result
}

func (b *ActuatorBridge) await(ctx context.Context, item session.PendingAck) AckResult {
	payload, err := protocol.Encode(protocol.ClientCCP, protocol.MsgStatus, b.carriageID, protocol.Fields{
		Sequence: protocol.Seq(item.Sequence),
		Status:   item.Status,
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("carriage.ActuatorBridge.SendAndAwaitAck encode failed")
		return NoAck
	}
	if err := b.out.Send(ctx, b.addr, payload); err != nil {
		b.logger.Warn().Err(err).Str("addr", b.addr).Msg("carriage.ActuatorBridge.SendAndAwaitAck send failed")
		return NoAck
	}
	observability.RecordMessage(b.carriageID, observability.DirectionOut, string(protocol.MsgStatus))

	timer := time.NewTimer(time.Until(item.Deadline))
	defer timer.Stop()
	select {
	case <-b.acks:
		b.logger.Debug().
			Str("ack_id", item.ID).
			Int64("seq", item.Sequence).
			Dur("waited", time.Since(item.SentAt)).
			Msg("carriage.ActuatorBridge.SendAndAwaitAck acked")
		return AckReceived
	case <-timer.C:
		b.logger.Warn().
			Err(ErrAckTimeout).
			Str("ack_id", item.ID).
			Str("status", item.Status).
			Dur("timeout", b.timeout).
			Msg("carriage.ActuatorBridge.SendAndAwaitAck")
		return NoAck
	case <-ctx.Done():
		return NoAck
	}
}

// ObserveAck consumes payload when it is an ack token. It runs on the
// actuator receive goroutine, never on the event loop.
func (b *ActuatorBridge) ObserveAck(payload []byte) bool {
	if !protocol.IsAckToken(payload) {
		return false
	}
	if !b.awaiting(time.Now()) {
		b.logger.Debug().Msg("carriage.ActuatorBridge.ObserveAck unsolicited")
		return true
	}
	select {
	case b.acks <- struct{}{}:
	default:
	}
	return true
}

// awaiting reports whether any pending wait is still inside its deadline.
func (b *ActuatorBridge) awaiting(now time.Time) bool {
	for _, item := range b.pending.List() {
		if !item.Expired(now) {
			return true
		}
	}
	return false
}

// Pending returns outstanding ack waits, oldest first.
func (b *ActuatorBridge) Pending() []session.PendingAck {
	return b.pending.List()
}
