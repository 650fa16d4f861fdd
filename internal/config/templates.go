package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "fleet":
		return fleetTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const fleetTemplate = `name = "MCP"
addr = ":2000"
id_prefix = "BR"
cors_origins = ["http://localhost:3000"]

[[carriages]]
id = "BR01"
host = "10.20.30.101"
addr = ":3001"

[[carriages]]
id = "BR02"
addr = "10.20.30.102:3001"
`
