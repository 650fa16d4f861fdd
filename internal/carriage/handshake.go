package carriage

import (
	"context"
	"sync"
	"time"
)

type HandshakePhase int

const (
	PhaseAwaitingAck HandshakePhase = iota
	PhaseAcknowledged
)

func (p HandshakePhase) String() string {
	if p == PhaseAcknowledged {
		return "acknowledged"
	}
	return "awaiting_ack"
}

// Handshake retries CCIN on a fixed interval until the controller answers
// with AKIN. The ticker only signals; the event loop does the sending.
type Handshake struct {
	interval time.Duration

	mu      sync.Mutex
	phase   HandshakePhase
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHandshake(interval time.Duration) *Handshake {
	return &Handshake{interval: interval}
}

// Start launches the retry ticker. tick runs once per interval until
// Acknowledge or Stop. Calling Start twice, or after Acknowledge, is a no-op.
func (h *Handshake) Start(ctx context.Context, tick func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started || h.phase == PhaseAcknowledged || h.interval <= 0 {
		return
	}
	h.started = true
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go h.run(ctx, tick, h.done)
}

func (h *Handshake) run(ctx context.Context, tick func(), done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !h.Awaiting() {
				return
			}
			tick()
		}
	}
}

// Acknowledge ends the handshake. It reports true only for the call that
// made the transition.
func (h *Handshake) Acknowledge() bool {
	h.mu.Lock()
	if h.phase == PhaseAcknowledged {
		h.mu.Unlock()
		return false
	}
	h.phase = PhaseAcknowledged
	cancel := h.cancel
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true
}

func (h *Handshake) Interval() time.Duration { return h.interval }

func (h *Handshake) Phase() HandshakePhase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

func (h *Handshake) Awaiting() bool {
	return h.Phase() == PhaseAwaitingAck
}

// Stop cancels the ticker without acknowledging and waits for it to exit.
func (h *Handshake) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
