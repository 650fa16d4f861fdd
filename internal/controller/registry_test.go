package controller

import (
	"testing"

	"github.com/danmuck/brctl/internal/testutil/testlog"
)

func TestRegistryPresetThenRegister(t *testing.T) {
	testlog.Start(t)

	r := NewRegistry()
	r.Preset(Preset{ID: "BR02", Addr: "10.0.0.2:3001"})
	r.Preset(Preset{ID: "BR02", Addr: "10.0.0.9:3001"})
	r.Preset(Preset{ID: " "})

	item, ok := r.Lookup("BR02")
	if !ok || item.Addr != "10.0.0.2:3001" || item.Registered {
		t.Fatalf("unexpected preset: %+v ok=%v", item, ok)
	}

	item = r.Register("BR02", "127.0.0.1:40000", "STOPC")
	if !item.Registered || item.Addr != "127.0.0.1:40000" || item.RegisteredAt.IsZero() {
		t.Fatalf("unexpected registration: %+v", item)
	}
	first := item.RegisteredAt
	item = r.Register("BR02", "", "")
	if item.RegisteredAt != first || item.Addr != "127.0.0.1:40000" || item.LastStatus != "STOPC" {
		t.Fatalf("re-register changed fields: %+v", item)
	}
	if item.Messages != 2 {
		t.Fatalf("unexpected message count: %d", item.Messages)
	}
}

func TestRegistryListOrderAndRegisteredFilter(t *testing.T) {
	testlog.Start(t)

	r := NewRegistry()
	r.Register("BR03", "a", "")
	r.Preset(Preset{ID: "BR01", Addr: "b"})
	r.RecordStatus("BR02", "c", "FFASTC")

	all := r.List()
	if len(all) != 3 || all[0].ID != "BR01" || all[1].ID != "BR02" || all[2].ID != "BR03" {
		t.Fatalf("unexpected order: %+v", all)
	}
	reg := r.Registered()
	if len(reg) != 1 || reg[0].ID != "BR03" {
		t.Fatalf("unexpected registered set: %+v", reg)
	}
}
