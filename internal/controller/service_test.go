package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/protocol/session"
	"github.com/danmuck/brctl/internal/testutil/testlog"
	"github.com/danmuck/brctl/internal/transport"
	"github.com/gin-gonic/gin"
)

func testSession() session.Config {
	cfg := session.DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	cfg.HeartbeatInterval = 40 * time.Millisecond
	return cfg
}

func receive(t *testing.T, ep *transport.Endpoint, want protocol.MessageType) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		dg, err := ep.Receive(ctx)
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		msg, err := protocol.Decode(dg.Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestServiceHandshakeAndHeartbeatOverUDP(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Session = testSession()
	svc := NewServiceWithConfig(cfg)
	if err := svc.bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer svc.close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	carriage, err := transport.Listen("127.0.0.1:0", testSession())
	if err != nil {
		t.Fatalf("listen carriage: %v", err)
	}
	defer carriage.Close()

	payload, err := protocol.Encode(protocol.ClientCCP, protocol.MsgCarriageInit, "BR01", protocol.Fields{
		Sequence: protocol.Seq(1200),
		Status:   "STOPC",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := carriage.SendTo(context.Background(), svc.ListenAddr(), payload); err != nil {
		t.Fatalf("send init: %v", err)
	}
	if ack := receive(t, carriage, protocol.MsgAckInit); ack.ClientID != "BR01" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if strq := receive(t, carriage, protocol.MsgStatusReq); strq.ClientType != protocol.ClientController {
		t.Fatalf("unexpected heartbeat: %+v", strq)
	}

	if err := svc.Controller().Command(context.Background(), "BR01", "FFASTC", ""); err != nil {
		t.Fatalf("command: %v", err)
	}
	if exec := receive(t, carriage, protocol.MsgExec); exec.Action != "FFASTC" {
		t.Fatalf("unexpected exec: %+v", exec)
	}
}

func TestControllerRoutes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	cfg := DefaultServiceConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Heartbeat = false
	cfg.Fleet = []Preset{{ID: "BR01", Addr: "127.0.0.1:39999"}, {ID: "BR02"}}
	svc := NewServiceWithConfig(cfg)
	if err := svc.bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer svc.close()
	r := svc.HTTPRouter()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/carriages", http.StatusOK},
		{http.MethodGet, "/carriages/BR01", http.StatusOK},
		{http.MethodGet, "/carriages/BR77", http.StatusNotFound},
		{http.MethodPost, "/carriages/BR01/commands/STOPO", http.StatusAccepted},
		{http.MethodPost, "/carriages/BR01/commands/IRLD?status=ON", http.StatusAccepted},
		{http.MethodPost, "/carriages/BR01/commands/IRLD", http.StatusBadRequest},
		{http.MethodPost, "/carriages/BR01/commands/WARP", http.StatusBadRequest},
		{http.MethodPost, "/carriages/BR77/commands/STOPC", http.StatusNotFound},
		{http.MethodPost, "/carriages/BR02/commands/STOPC", http.StatusConflict},
		{http.MethodPost, "/carriages/BR01/status", http.StatusAccepted},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != tc.want {
			t.Fatalf("%s %s: got %d want %d body=%s", tc.method, tc.path, rr.Code, tc.want, rr.Body.String())
		}
	}
}

func TestBootstrapRejectsEmptyID(t *testing.T) {
	testlog.Start(t)

	cfg := DefaultServiceConfig()
	cfg.ControllerID = " "
	if err := NewServiceWithConfig(cfg).bootstrap(); err != ErrInvalidControllerID {
		t.Fatalf("expected ErrInvalidControllerID, got %v", err)
	}
}

func TestCommandRoutesRequireAdminToken(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	cfg := DefaultServiceConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Heartbeat = false
	cfg.AdminToken = "ops"
	cfg.Fleet = []Preset{{ID: "BR01", Addr: "127.0.0.1:39999"}}
	svc := NewServiceWithConfig(cfg)
	if err := svc.bootstrap(); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer svc.close()
	r := svc.HTTPRouter()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/carriages", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reads should stay open, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/carriages/BR01/commands/STOPC", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/carriages/BR01/commands/STOPC", nil)
	req.Header.Set("Authorization", "Bearer ops")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with token, got %d body=%s", rr.Code, rr.Body.String())
	}
}
