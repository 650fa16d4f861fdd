package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/testutil/testlog"
)

func testConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	cfg.WriteTimeout = 200 * time.Millisecond
	return cfg
}

func TestEndpointSendReceive(t *testing.T) {
	testlog.Start(t)

	a, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen a: %v", err)
	}
	defer a.Close()
	b, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen b: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Send(ctx, b.LocalAddr().String(), []byte(`{"message":"STRQ"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	dg, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(dg.Payload) != `{"message":"STRQ"}` {
		t.Fatalf("unexpected payload: %q", dg.Payload)
	}
	if dg.From.String() != a.LocalAddr().String() {
		t.Fatalf("unexpected source: %s want %s", dg.From, a.LocalAddr())
	}
}

func TestEndpointReceiveHonorsContext(t *testing.T) {
	testlog.Start(t)

	e, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := e.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEndpointServeStopsOnClose(t *testing.T) {
	testlog.Start(t)

	e, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- e.Serve(context.Background(), func(Datagram) {})
	}()
	time.Sleep(30 * time.Millisecond)
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("serve did not stop after close")
	}
}

func TestEndpointRejectsEmptyAddress(t *testing.T) {
	testlog.Start(t)

	if _, err := Listen(" ", testConfig()); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
	e, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer e.Close()
	if err := e.Send(context.Background(), "", []byte("x")); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}

func TestOneshotSendsFromEphemeralSource(t *testing.T) {
	testlog.Start(t)

	bound, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen bound: %v", err)
	}
	defer bound.Close()
	peer, err := Listen("127.0.0.1:0", testConfig())
	if err != nil {
		t.Fatalf("listen peer: %v", err)
	}
	defer peer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := NewOneshot(testConfig()).Send(ctx, peer.LocalAddr().String(), []byte(`{"message":"EXEC"}`)); err != nil {
		t.Fatalf("oneshot send: %v", err)
	}
	dg, err := peer.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if dg.From.String() == bound.LocalAddr().String() {
		t.Fatalf("oneshot reused a bound source address")
	}

	// a reply to the oneshot source goes nowhere near the bound endpoint
	if err := peer.SendTo(ctx, dg.From, []byte("ACK")); err != nil {
		t.Fatalf("reply: %v", err)
	}
	quiet, cancelQuiet := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancelQuiet()
	if got, err := bound.Receive(quiet); err == nil {
		t.Fatalf("bound endpoint received %q", got.Payload)
	}
	if err := NewOneshot(testConfig()).Send(ctx, " ", nil); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}
