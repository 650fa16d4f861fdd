package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/brctl/internal/config"
	"github.com/danmuck/brctl/internal/controller"
)

type fileConfig struct {
	ID                string   `toml:"id"`
	Listen            string   `toml:"listen"`
	AdminListen       string   `toml:"admin_listen"`
	CorsOrigins       []string `toml:"cors_origins"`
	AdminToken        string   `toml:"admin_token"`
	Heartbeat         bool     `toml:"heartbeat"`
	HeartbeatInterval string   `toml:"heartbeat_interval"`
	// Fleet is a roster file, relative paths resolve against this file.
	Fleet string `toml:"fleet"`
}

func loadServiceConfig(path string) (controller.ServiceConfig, error) {
	cfg := controller.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return controller.ServiceConfig{}, fmt.Errorf("load mcpctl config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ControllerID = id
		}
	}
	if meta.IsDefined("listen") {
		cfg.ListenAddr = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("admin_listen") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.AdminListen)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("heartbeat") {
		cfg.Heartbeat = raw.Heartbeat
	}
	if meta.IsDefined("heartbeat_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HeartbeatInterval))
		if err != nil {
			return controller.ServiceConfig{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.Session.HeartbeatInterval = d
	}

	if meta.IsDefined("fleet") && strings.TrimSpace(raw.Fleet) != "" {
		fleetPath := strings.TrimSpace(raw.Fleet)
		if !filepath.IsAbs(fleetPath) {
			fleetPath = filepath.Join(filepath.Dir(path), fleetPath)
		}
		fleet, err := config.LoadFleetConfig(fleetPath)
		if err != nil {
			return controller.ServiceConfig{}, err
		}
		cfg.Fleet = config.ControllerPresets(fleet.Carriages)
		if !meta.IsDefined("listen") {
			cfg.ListenAddr = fleet.Addr
		}
		if !meta.IsDefined("cors_origins") {
			cfg.CorsOrigins = fleet.CorsOrigins
		}
	}
	return cfg, nil
}
