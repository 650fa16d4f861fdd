package actuator

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/testutil/testlog"
)

type packet struct {
	to      string
	payload []byte
}

type recordingPackets struct {
	mu   sync.Mutex
	sent []packet
}

func (r *recordingPackets) SendTo(_ context.Context, to net.Addr, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, packet{to: to.String(), payload: append([]byte(nil), payload...)})
	return nil
}

func (r *recordingPackets) all() []packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]packet(nil), r.sent...)
}

var carriageAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 45001}

func statusPayload(t *testing.T, role protocol.ClientType, status string) []byte {
	t.Helper()
	payload, err := protocol.Encode(role, protocol.MsgStatus, "BR01", protocol.Fields{Status: status})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return payload
}

func TestSimulatorAcknowledgesCarriageRecords(t *testing.T) {
	testlog.Start(t)

	out := &recordingPackets{}
	sim := NewSimulator("ESP01", out, AckRecord, 4)
	sim.Handle(context.Background(), statusPayload(t, protocol.ClientCCP, protocol.StatusHazardStopped), carriageAddr)

	sent := out.all()
	if len(sent) != 1 || sent[0].to != carriageAddr.String() {
		t.Fatalf("unexpected acks: %+v", sent)
	}
	if !protocol.IsAckToken(sent[0].payload) {
		t.Fatalf("ack payload not recognised: %q", sent[0].payload)
	}
	recent := sim.Recent()
	if len(recent) != 1 || !recent[0].Acked || recent[0].Status != protocol.StatusHazardStopped {
		t.Fatalf("unexpected history: %+v", recent)
	}
	if sim.Carriage().String() != carriageAddr.String() {
		t.Fatalf("carriage address not learned")
	}
}

func TestSimulatorTokenFormat(t *testing.T) {
	testlog.Start(t)

	out := &recordingPackets{}
	sim := NewSimulator("ESP01", out, AckToken, 4)
	sim.Handle(context.Background(), statusPayload(t, protocol.ClientCCP, "STOPC"), carriageAddr)
	if sent := out.all(); len(sent) != 1 || string(sent[0].payload) != protocol.AckToken {
		t.Fatalf("unexpected ack: %+v", sent)
	}
}

func TestSimulatorSilentRecordsWithoutAck(t *testing.T) {
	testlog.Start(t)

	out := &recordingPackets{}
	sim := NewSimulator("ESP01", out, AckRecord, 4)
	sim.SetSilent(true)
	sim.Handle(context.Background(), statusPayload(t, protocol.ClientCCP, "STOPC"), carriageAddr)
	if len(out.all()) != 0 {
		t.Fatalf("silent simulator acknowledged")
	}
	if recent := sim.Recent(); len(recent) != 1 || recent[0].Acked {
		t.Fatalf("unexpected history: %+v", recent)
	}
}

func TestSimulatorDropsGarbageAndUnknownClients(t *testing.T) {
	testlog.Start(t)

	out := &recordingPackets{}
	sim := NewSimulator("ESP01", out, AckRecord, 4)
	sim.Handle(context.Background(), []byte("ACK"), carriageAddr)
	sim.Handle(context.Background(), statusPayload(t, protocol.ClientType("web"), "STOPC"), carriageAddr)
	if len(out.all()) != 0 || len(sim.Recent()) != 0 {
		t.Fatalf("garbage was handled: sent=%d recent=%d", len(out.all()), len(sim.Recent()))
	}
}

func TestSimulatorHistoryIsBounded(t *testing.T) {
	testlog.Start(t)

	sim := NewSimulator("ESP01", &recordingPackets{}, AckRecord, 3)
	for _, status := range []string{"A", "B", "C", "D", "E"} {
		sim.Handle(context.Background(), statusPayload(t, protocol.ClientCCP, status), carriageAddr)
	}
	recent := sim.Recent()
	if len(recent) != 3 || recent[0].Status != "C" || recent[2].Status != "E" {
		t.Fatalf("unexpected history: %+v", recent)
	}
}

func TestSimulatorReports(t *testing.T) {
	testlog.Start(t)

	out := &recordingPackets{}
	sim := NewSimulator("ESP01", out, AckRecord, 4)
	if err := sim.ReportHazard(context.Background(), "BR01"); !errors.Is(err, ErrNoCarriage) {
		t.Fatalf("expected ErrNoCarriage, got %v", err)
	}

	sim.SetCarriage(carriageAddr)
	if err := sim.ReportHazard(context.Background(), "BR01"); err != nil {
		t.Fatalf("hazard: %v", err)
	}
	if err := sim.ReportAlignment(context.Background(), "BR01", true); err != nil {
		t.Fatalf("alignment: %v", err)
	}
	if err := sim.ReportStatus(context.Background(), "BR01", "DOORS_JAMMED"); err != nil {
		t.Fatalf("status: %v", err)
	}

	sent := out.all()
	if len(sent) != 3 {
		t.Fatalf("expected three reports, got %d", len(sent))
	}
	want := []struct{ action, status string }{
		{action: string(protocol.ActionHazard)},
		{action: protocol.ReportAligned},
		{status: "DOORS_JAMMED"},
	}
	for i, p := range sent {
		msg, err := protocol.Decode(p.payload)
		if err != nil {
			t.Fatalf("decode report %d: %v", i, err)
		}
		if msg.ClientType != protocol.ClientESP || msg.Action != want[i].action || msg.Status != want[i].status {
			t.Fatalf("report %d: unexpected %+v", i, msg)
		}
	}
}
