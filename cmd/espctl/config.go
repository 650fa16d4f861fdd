package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/brctl/internal/actuator"
)

type fileConfig struct {
	ID          string   `toml:"id"`
	CarriageID  string   `toml:"carriage_id"`
	Listen      string   `toml:"listen"`
	Carriage    string   `toml:"carriage"`
	AdminListen string   `toml:"admin_listen"`
	CorsOrigins []string `toml:"cors_origins"`
	AdminToken  string   `toml:"admin_token"`
	Silent      bool     `toml:"silent"`
	AckFormat   string   `toml:"ack_format"`
	RecentLimit int      `toml:"recent_limit"`
}

func loadServiceConfig(path string) (actuator.ServiceConfig, error) {
	cfg := actuator.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return actuator.ServiceConfig{}, fmt.Errorf("load espctl config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ActuatorID = id
		}
	}
	if meta.IsDefined("carriage_id") {
		cfg.CarriageID = strings.TrimSpace(raw.CarriageID)
	}
	if meta.IsDefined("listen") {
		cfg.ListenAddr = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("carriage") {
		cfg.CarriageAddr = strings.TrimSpace(raw.Carriage)
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
	if meta.IsDefined("silent") {
		cfg.Silent = raw.Silent
	}
	if meta.IsDefined("ack_format") {
		switch format := actuator.AckFormat(strings.ToLower(strings.TrimSpace(raw.AckFormat))); format {
		case actuator.AckRecord, actuator.AckToken:
			cfg.AckFormat = format
		default:
			return actuator.ServiceConfig{}, fmt.Errorf("invalid ack_format %q", raw.AckFormat)
		}
	}
	if meta.IsDefined("recent_limit") {
		cfg.RecentLimit = raw.RecentLimit
	}
	return cfg, nil
}
