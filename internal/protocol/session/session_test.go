package session

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/brctl/internal/testutil/testlog"
)

func TestSequenceSeedRange(t *testing.T) {
	testlog.Start(t)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		v := NewSequence(rng).Peek()
		if v < SequenceMin || v > SequenceMax {
			t.Fatalf("seed out of range: %d", v)
		}
	}
	if v := NewSequence(nil).Peek(); v < SequenceMin || v > SequenceMax {
		t.Fatalf("default seed out of range: %d", v)
	}
}

func TestSequenceNextReturnsThenIncrements(t *testing.T) {
	testlog.Start(t)

	seq := NewSequenceAt(1000)
	if got := seq.Next(); got != 1000 {
		t.Fatalf("first Next = %d", got)
	}
	if got := seq.Next(); got != 1001 {
		t.Fatalf("second Next = %d", got)
	}
	if got := seq.Peek(); got != 1002 {
		t.Fatalf("Peek = %d", got)
	}
}

func TestSequenceConcurrentNextIsUnique(t *testing.T) {
	testlog.Start(t)

	seq := NewSequenceAt(5000)
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				v := seq.Next()
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Fatalf("expected 800 unique values, got %d", len(seen))
	}
}

func TestConfigWithDefaults(t *testing.T) {
	testlog.Start(t)

	cfg := Config{AckTimeout: 50 * time.Millisecond}.WithDefaults()
	def := DefaultConfig()
	if cfg.AckTimeout != 50*time.Millisecond {
		t.Fatalf("explicit ack timeout overwritten: %v", cfg.AckTimeout)
	}
	if cfg.HandshakeInterval != def.HandshakeInterval || cfg.MaxDatagramSize != def.MaxDatagramSize {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Backoff.InitialDelay != def.Backoff.InitialDelay {
		t.Fatalf("backoff defaults not applied: %+v", cfg.Backoff)
	}
}

func TestAckOutboxLifecycle(t *testing.T) {
	testlog.Start(t)

	o := NewAckOutbox()
	base := time.Now()
	o.Upsert(PendingAck{ID: "b", Status: "HAZARD_STOPPED", SentAt: base.Add(time.Millisecond), Deadline: base.Add(time.Second)})
	o.Upsert(PendingAck{ID: "a", Status: "HAZARD_STOPPED", SentAt: base, Deadline: base.Add(time.Second)})
	o.Upsert(PendingAck{ID: " "})

	if o.Len() != 2 {
		t.Fatalf("unexpected outbox size: %d", o.Len())
	}
	list := o.List()
	if list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("expected oldest first: %+v", list)
	}
	item := list[0]
	if item.Expired(base) || !item.Expired(base.Add(time.Second)) {
		t.Fatalf("unexpected expiry semantics: %+v", item)
	}
	o.Remove("a")
	o.Remove("b")
	if o.Len() != 0 {
		t.Fatalf("expected empty outbox, got %d", o.Len())
	}
}

func TestReceiveRetryDelay(t *testing.T) {
	testlog.Start(t)

	cfg := Config{Backoff: BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: 300 * time.Millisecond}}
	if d := cfg.ReceiveRetryDelay(1, nil); d != 100*time.Millisecond {
		t.Fatalf("attempt 1 delay = %v", d)
	}
	if d := cfg.ReceiveRetryDelay(2, nil); d != 200*time.Millisecond {
		t.Fatalf("attempt 2 delay = %v", d)
	}
	if d := cfg.ReceiveRetryDelay(5, nil); d != 300*time.Millisecond {
		t.Fatalf("expected delay capped by MaxDelay, got %v", d)
	}

	// a short read timeout lowers the cap below MaxDelay
	cfg.ReadTimeout = 20 * time.Millisecond
	if d := cfg.ReceiveRetryDelay(5, nil); d != 160*time.Millisecond {
		t.Fatalf("expected delay capped by read timeout, got %v", d)
	}

	cfg.Backoff.Jitter = true
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		if d := cfg.ReceiveRetryDelay(5, rng); d < 80*time.Millisecond || d > 160*time.Millisecond {
			t.Fatalf("jittered delay out of range: %v", d)
		}
	}
	if d := (Config{}).ReceiveRetryDelay(3, rng); d != 0 {
		t.Fatalf("zero backoff should not wait, got %v", d)
	}
}
