package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/brctl/internal/carriage"
)

type fileConfig struct {
	ID                string   `toml:"id"`
	IDPrefix          string   `toml:"id_prefix"`
	Listen            string   `toml:"listen"`
	Controller        string   `toml:"controller"`
	Actuator          string   `toml:"actuator"`
	ActuatorListen    string   `toml:"actuator_listen"`
	AdminListen       string   `toml:"admin_listen"`
	CorsOrigins       []string `toml:"cors_origins"`
	AdminToken        string   `toml:"admin_token"`
	StatusLogInterval string   `toml:"status_log_interval"`
	HandshakeInterval string   `toml:"handshake_interval"`
	AckTimeout        string   `toml:"ack_timeout"`
	MaxDatagramSize   int      `toml:"max_datagram_size"`
	EventQueueSize    int      `toml:"event_queue_size"`
}

func loadServiceConfig(path string) (carriage.ServiceConfig, error) {
	cfg := carriage.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return carriage.ServiceConfig{}, fmt.Errorf("load ccpctl config: %w", err)
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.CarriageID = id
		}
	}
	if meta.IsDefined("id_prefix") {
		cfg.IDPrefix = strings.TrimSpace(raw.IDPrefix)
	}
	if meta.IsDefined("listen") {
		cfg.ListenAddr = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("controller") {
		cfg.ControllerAddr = strings.TrimSpace(raw.Controller)
	}
	if meta.IsDefined("actuator") {
		cfg.ActuatorAddr = strings.TrimSpace(raw.Actuator)
	}
	if meta.IsDefined("actuator_listen") {
		cfg.ActuatorListenAddr = strings.TrimSpace(raw.ActuatorListen)
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

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"status_log_interval", raw.StatusLogInterval, &cfg.StatusLogInterval},
		{"handshake_interval", raw.HandshakeInterval, &cfg.Session.HandshakeInterval},
		{"ack_timeout", raw.AckTimeout, &cfg.Session.AckTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return carriage.ServiceConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("max_datagram_size") {
		cfg.Session.MaxDatagramSize = raw.MaxDatagramSize
	}
	if meta.IsDefined("event_queue_size") {
		cfg.Session.EventQueueSize = raw.EventQueueSize
	}
	return cfg, nil
}
