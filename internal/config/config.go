package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/brctl/internal/protocol"
	"github.com/pelletier/go-toml/v2"
)

// FleetConfig describes a controller and the carriages it expects.
type FleetConfig struct {
	Name        string          `toml:"name"`
	Addr        string          `toml:"addr"`
	IDPrefix    string          `toml:"id_prefix"`
	CorsOrigins []string        `toml:"cors_origins"`
	Carriages   []CarriageEntry `toml:"carriages"`
}

// CarriageEntry is one carriage in the fleet roster.
type CarriageEntry struct {
	ID   string `toml:"id"`
	Host string `toml:"host"`
	Addr string `toml:"addr"`
}

func LoadFleetConfig(path string) (FleetConfig, error) {
	var cfg FleetConfig
	if err := loadToml(path, &cfg); err != nil {
		return FleetConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "MCP"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":2000"
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = protocol.DefaultIDPrefix
	}
	if err := ValidateFleetConfig(cfg); err != nil {
		return FleetConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateFleetConfig(cfg FleetConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("fleet config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("fleet config missing addr")
	}
	seen := make(map[string]struct{}, len(cfg.Carriages))
	for i, entry := range cfg.Carriages {
		if err := ValidateCarriageEntry(entry, cfg.IDPrefix); err != nil {
			return fmt.Errorf("carriage[%d] invalid: %w", i, err)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("carriage[%d] invalid: duplicate id %s", i, entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	return nil
}

func ValidateCarriageEntry(entry CarriageEntry, prefix string) error {
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if _, err := protocol.ParseOrdinal(entry.ID, prefix); err != nil {
		return err
	}
	if strings.HasPrefix(strings.TrimSpace(entry.Addr), ":") &&
		strings.TrimSpace(entry.Host) == "" {
		return fmt.Errorf("host required when addr is a port")
	}
	return nil
}

// Address joins Host and Addr when Addr is only a port.
func (e CarriageEntry) Address() string {
	addr := strings.TrimSpace(e.Addr)
	if strings.HasPrefix(addr, ":") {
		return strings.TrimSpace(e.Host) + addr
	}
	return addr
}
