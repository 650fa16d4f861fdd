package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/brctl/internal/protocol"
	"github.com/danmuck/brctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFleetConfigTemplate(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "fleet.toml")
	if err := WriteTemplate(path, "fleet", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "fleet", false); err == nil {
		t.Fatalf("expected existing file to be kept")
	}

	cfg, err := LoadFleetConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "MCP" || cfg.Addr != ":2000" || len(cfg.Carriages) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	presets := ControllerPresets(cfg.Carriages)
	if presets[0].ID != "BR01" || presets[0].Addr != "10.20.30.101:3001" {
		t.Fatalf("unexpected preset: %+v", presets[0])
	}
	if presets[1].Addr != "10.20.30.102:3001" {
		t.Fatalf("unexpected preset: %+v", presets[1])
	}
}

func TestLoadFleetConfigDefaults(t *testing.T) {
	testlog.Start(t)

	cfg, err := LoadFleetConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "MCP" || cfg.Addr != ":2000" || cfg.IDPrefix != protocol.DefaultIDPrefix {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFleetConfigRejectsBadRoster(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"malformed id": `
[[carriages]]
id = "carriage-1"
addr = "10.0.0.1:3001"
`,
		"duplicate id": `
[[carriages]]
id = "BR01"
addr = "10.0.0.1:3001"

[[carriages]]
id = "BR01"
addr = "10.0.0.2:3001"
`,
		"port without host": `
[[carriages]]
id = "BR01"
addr = ":3001"
`,
	}
	for name, body := range cases {
		if _, err := LoadFleetConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	_, err := LoadFleetConfig(writeConfig(t, "[[carriages]]\nid = \"XX1\"\n"))
	if !errors.Is(err, protocol.ErrMalformedIdentity) {
		t.Fatalf("expected ErrMalformedIdentity, got %v", err)
	}
}

func TestLoadFleetConfigParseError(t *testing.T) {
	testlog.Start(t)

	_, err := LoadFleetConfig(writeConfig(t, "name = "))
	if err == nil || !strings.Contains(err.Error(), "config parse failed") {
		t.Fatalf("expected parse error, got %v", err)
	}
	if _, err := LoadFleetConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	testlog.Start(t)

	if _, err := Template("carriage"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
