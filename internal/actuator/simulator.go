package actuator

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/brctl/internal/observability"
	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/rs/zerolog"
)

var ErrNoCarriage = errors.New("actuator: no carriage address known")

// AckFormat selects how acknowledgments are written.
type AckFormat string

const (
	// AckRecord answers with {"message":"ACK"}.
	AckRecord AckFormat = "record"
	// AckToken answers with the bare ACK token.
	AckToken AckFormat = "token"
)

// Received is one record the simulator accepted.
type Received struct {
	Message    protocol.MessageType `json:"message"`
	ClientID   string               `json:"client_id"`
	Action     string               `json:"action,omitempty"`
	Status     string               `json:"status,omitempty"`
	From       string               `json:"from"`
	Acked      bool                 `json:"acked"`
	ReceivedAt time.Time            `json:"received_at"`
}

// PacketSender writes one datagram to a resolved address.
type PacketSender interface {
	SendTo(ctx context.Context, to net.Addr, payload []byte) error
}

// Simulator is safe for concurrent use.
type Simulator struct {
	id     string
	out    PacketSender
	format AckFormat
	limit  int
	seq    *session.Sequence
	logger zerolog.Logger

	silent atomic.Bool

	mu      sync.Mutex
	recent  []Received
	lastSrc net.Addr
}

func NewSimulator(id string, out PacketSender, format AckFormat, limit int) *Simulator {
	if format == "" {
		format = AckRecord
	}
	if limit <= 0 {
		limit = 32
	}
	return &Simulator{
		id:     id,
		out:    out,
		format: format,
		limit:  limit,
		seq:    session.NewSequence(nil),
		logger: observability.NodeLogger("actuator", id),
		recent: make([]Received, 0, limit),
	}
}

// SetSilent stops (or resumes) acknowledgments.
func (s *Simulator) SetSilent(silent bool) {
	s.silent.Store(silent)
	s.logger.Info().Bool("silent", silent).Msg("actuator.Simulator.SetSilent")
}

func (s *Simulator) Silent() bool { return s.silent.Load() }

// Handle acknowledges one datagram from a carriage. Records that do not
// decode, or come from an unexpected client type, are dropped.
func (s *Simulator) Handle(ctx context.Context, payload []byte, from net.Addr) {
	msg, err := protocol.Decode(payload)
	if err != nil {
		observability.RecordDecodeError(s.id)
		s.logger.Warn().Err(err).Msg("actuator.Simulator.Handle dropped")
		return
	}
	observability.RecordMessage(s.id, observability.DirectionIn, string(msg.Type))
	if !msg.ClientType.Valid() {
		s.logger.Warn().Str("client_type", string(msg.ClientType)).Msg("actuator.Simulator.Handle unexpected client")
		return
	}

	rec := Received{
		Message:    msg.Type,
		ClientID:   msg.ClientID,
		Action:     msg.Action,
		Status:     msg.Status,
		ReceivedAt: time.Now(),
	}
	if from != nil {
		rec.From = from.String()
	}
	if !s.Silent() && from != nil {
		if err := s.out.SendTo(ctx, from, s.ackPayload()); err != nil {
			s.logger.Warn().Err(err).Str("to", rec.From).Msg("actuator.Simulator.Handle ack failed")
		} else {
			rec.Acked = true
			observability.RecordMessage(s.id, observability.DirectionOut, protocol.AckToken)
		}
	}
	s.remember(rec, from)
	s.logger.Debug().
		Str("message", string(rec.Message)).
		Str("action", rec.Action).
		Str("status", rec.Status).
		Bool("acked", rec.Acked).
		Msg("actuator.Simulator.Handle")
}

func (s *Simulator) ackPayload() []byte {
	if s.format == AckToken {
		return []byte(protocol.AckToken)
	}
	return []byte(`{"message":"` + protocol.AckToken + `"}`)
}

func (s *Simulator) remember(rec Received, from net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == s.limit {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:s.limit-1]
	}
	s.recent = append(s.recent, rec)
	if from != nil {
		s.lastSrc = from
	}
}

// Recent returns the retained records, oldest first.
func (s *Simulator) Recent() []Received {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Received(nil), s.recent...)
}

// Carriage returns the address the last carriage record came from.
func (s *Simulator) Carriage() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSrc
}

// ReportHazard tells the carriage its hazard sensor tripped.
func (s *Simulator) ReportHazard(ctx context.Context, carriageID string) error {
	return s.report(ctx, carriageID, protocol.Fields{Action: string(protocol.ActionHazard)})
}

// ReportAlignment sends a photodiode reading.
func (s *Simulator) ReportAlignment(ctx context.Context, carriageID string, aligned bool) error {
	action := protocol.ReportMisaligned
	if aligned {
		action = protocol.ReportAligned
	}
	return s.report(ctx, carriageID, protocol.Fields{Action: action})
}

// ReportStatus sends a free-form status update.
func (s *Simulator) ReportStatus(ctx context.Context, carriageID, status string) error {
	return s.report(ctx, carriageID, protocol.Fields{Status: status})
}

func (s *Simulator) report(ctx context.Context, carriageID string, fields protocol.Fields) error {
	to := s.Carriage()
	if to == nil {
		return ErrNoCarriage
	}
	fields.Sequence = protocol.Seq(s.seq.Next())
	payload, err := protocol.Encode(protocol.ClientESP, protocol.MsgStatus, carriageID, fields)
	if err != nil {
		return err
	}
	if err := s.out.SendTo(ctx, to, payload); err != nil {
		return err
	}
	observability.RecordMessage(s.id, observability.DirectionOut, string(protocol.MsgStatus))
	s.logger.Info().
		Str("carriage", carriageID).
		Str("action", fields.Action).
		Str("status", fields.Status).
		Msg("actuator.Simulator.report")
	return nil
}

// SetCarriage seeds the report address before any carriage traffic.
func (s *Simulator) SetCarriage(addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSrc = addr
}
