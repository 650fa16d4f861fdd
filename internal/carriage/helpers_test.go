package carriage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
)

type sentDatagram struct {
	addr    string
	payload []byte
}

// recordingSender captures outbound datagrams. onSend runs after the
// datagram is recorded.
type recordingSender struct {
	mu     sync.Mutex
	sent   []sentDatagram
	err    error
	onSend func(payload []byte)
}

func (r *recordingSender) Send(_ context.Context, addr string, payload []byte) error {
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	r.sent = append(r.sent, sentDatagram{addr: addr, payload: append([]byte(nil), payload...)})
	hook := r.onSend
	r.mu.Unlock()
	if hook != nil {
		hook(payload)
	}
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingSender) datagrams() []sentDatagram {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentDatagram(nil), r.sent...)
}

func (r *recordingSender) messages(t *testing.T) []protocol.Message {
	t.Helper()
	out := make([]protocol.Message, 0)
	for _, dg := range r.datagrams() {
		msg, err := protocol.Decode(dg.payload)
		if err != nil {
			t.Fatalf("decode sent payload %q: %v", dg.payload, err)
		}
		out = append(out, msg)
	}
	return out
}

func (r *recordingSender) last(t *testing.T) protocol.Message {
	t.Helper()
	msgs := r.messages(t)
	if len(msgs) == 0 {
		t.Fatalf("nothing was sent")
	}
	return msgs[len(msgs)-1]
}

type indicatorCall struct {
	kind  string
	state State
	on    bool
}

type recordingIndicator struct {
	calls []indicatorCall
}

func (r *recordingIndicator) ShowPattern(state State, _ Pattern) {
	r.calls = append(r.calls, indicatorCall{kind: "pattern", state: state})
}

func (r *recordingIndicator) Flash() {
	r.calls = append(r.calls, indicatorCall{kind: "flash"})
}

func (r *recordingIndicator) StopFlashing() {
	r.calls = append(r.calls, indicatorCall{kind: "stop_flashing"})
}

func (r *recordingIndicator) SetIRLED(on bool) {
	r.calls = append(r.calls, indicatorCall{kind: "ir", on: on})
}

func (r *recordingIndicator) count(kind string) int {
	n := 0
	for _, c := range r.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func testSession() session.Config {
	cfg := session.DefaultConfig()
	cfg.HandshakeInterval = 30 * time.Millisecond
	cfg.AckTimeout = 40 * time.Millisecond
	cfg.ReadTimeout = 20 * time.Millisecond
	cfg.WriteTimeout = 200 * time.Millisecond
	return cfg
}

func newTestCarriage(t *testing.T, id string) (*Carriage, *recordingSender, *recordingSender) {
	t.Helper()
	ctrl := &recordingSender{}
	act := &recordingSender{}
	c, err := New(Config{
		CarriageID:     id,
		IDPrefix:       protocol.DefaultIDPrefix,
		ControllerAddr: "127.0.0.1:2000",
		ActuatorAddr:   "127.0.0.1:3012",
		Session:        testSession(),
	}, Deps{
		Controller: ctrl,
		Actuator:   act,
		Forward:    act,
		Indicator:  NopIndicator{},
	})
	if err != nil {
		t.Fatalf("new carriage: %v", err)
	}
	return c, ctrl, act
}

func execMessage(t *testing.T, from string, action, status string) protocol.Message {
	t.Helper()
	payload, err := protocol.Encode(protocol.ClientController, protocol.MsgExec, from, protocol.Fields{
		Sequence: protocol.Seq(2001),
		Action:   action,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("encode exec: %v", err)
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		t.Fatalf("decode exec: %v", err)
	}
	return msg
}
