package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed          = errors.New("transport: endpoint closed")
	ErrAddressRequired = errors.New("transport: address required")
)

// Datagram is one received payload with its source.
type Datagram struct {
	Payload    []byte
	From       net.Addr
	ReceivedAt time.Time
}

// Sender delivers one datagram to addr.
type Sender interface {
	Send(ctx context.Context, addr string, payload []byte) error
}

// Endpoint is a bound UDP socket.
type Endpoint struct {
	conn net.PacketConn
	cfg  session.Config
	rng  *rand.Rand

	mu       sync.Mutex
	resolved map[string]*net.UDPAddr
}

var _ Sender = (*Endpoint)(nil)

// Listen binds a UDP endpoint on addr (":0" picks a free port).
func Listen(addr string, cfg session.Config) (*Endpoint, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, ErrAddressRequired
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Endpoint{
		conn:     conn,
		cfg:      cfg.WithDefaults(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		resolved: make(map[string]*net.UDPAddr),
	}, nil
}

func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// Send resolves addr and writes payload as a single datagram.
func (e *Endpoint) Send(ctx context.Context, addr string, payload []byte) error {
	to, err := e.resolve(addr)
	if err != nil {
		return err
	}
	return e.SendTo(ctx, to, payload)
}

// SendTo writes payload to an already resolved address.
func (e *Endpoint) SendTo(ctx context.Context, to net.Addr, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(e.cfg.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := e.conn.SetWriteDeadline(deadline); err != nil {
		return e.wrapErr(err)
	}
	if _, err := e.conn.WriteTo(payload, to); err != nil {
		return e.wrapErr(err)
	}
	return nil
}

// Receive blocks until one datagram arrives, ctx ends or the socket closes.
func (e *Endpoint) Receive(ctx context.Context) (Datagram, error) {
	buf := make([]byte, e.cfg.MaxDatagramSize)
	for {
		if err := ctx.Err(); err != nil {
			return Datagram{}, err
		}
		if err := e.conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout)); err != nil {
			return Datagram{}, e.wrapErr(err)
		}
		n, from, err := e.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return Datagram{}, e.wrapErr(err)
		}
		return Datagram{
			Payload:    append([]byte(nil), buf[:n]...),
			From:       from,
			ReceivedAt: time.Now(),
		}, nil
	}
}

// Serve runs the receive loop, handing each datagram to handle on the calling
// goroutine. Transient socket errors are retried with backoff. Returns nil on
// ctx cancellation or close.
func (e *Endpoint) Serve(ctx context.Context, handle func(Datagram)) error {
	attempt := 0
	for {
		dg, err := e.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			attempt++
			log.Warn().
				Str("local", e.LocalAddr().String()).
				Int("attempt", attempt).
				Err(err).
				Msg("transport.Endpoint.Serve receive failed")
			if err := e.sleepBackoff(ctx, attempt); err != nil {
				return nil
			}
			continue
		}
		attempt = 0
		handle(dg)
	}
}

func (e *Endpoint) sleepBackoff(ctx context.Context, attempt int) error {
	delay := e.cfg.ReceiveRetryDelay(attempt, e.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Endpoint) resolve(addr string) (*net.UDPAddr, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, ErrAddressRequired
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if to, ok := e.resolved[addr]; ok {
		return to, nil
	}
	to, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", addr, err)
	}
	e.resolved[addr] = to
	return to, nil
}

func (e *Endpoint) wrapErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return err
}
