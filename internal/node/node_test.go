package node

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/brctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func TestNewRouterServesAndAllowsCORS(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	r := NewRouter("carriage", "BR01", []string{"http://dash.local"})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dash.local")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://dash.local" {
		t.Fatalf("unexpected allow-origin header: %q", got)
	}
}

func TestNormalizeOriginsDefault(t *testing.T) {
	testlog.Start(t)

	got := normalizeOrigins(nil)
	if len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Fatalf("unexpected default origins: %v", got)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", r, ready)
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("admin listener did not come up")
	}
	resp, err := http.Get("http://" + addr.String() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
