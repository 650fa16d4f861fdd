package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/danmuck/brctl/internal/protocol/session"
)

// Oneshot writes each datagram from a fresh ephemeral socket and closes it
// right away. Replies to a oneshot send never reach a bound Endpoint.
type Oneshot struct {
	writeTimeout time.Duration
}

var _ Sender = Oneshot{}

func NewOneshot(cfg session.Config) Oneshot {
	return Oneshot{writeTimeout: cfg.WithDefaults().WriteTimeout}
}

func (o Oneshot) Send(ctx context.Context, addr string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ErrAddressRequired
	}
	to, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, to)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(o.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err = conn.Write(payload)
	return err
}
