package config

import "github.com/danmuck/brctl/internal/controller"

// ControllerPresets turns the roster into controller registry presets.
func ControllerPresets(entries []CarriageEntry) []controller.Preset {
	presets := make([]controller.Preset, 0, len(entries))
	for _, entry := range entries {
		presets = append(presets, controller.Preset{
			ID:   entry.ID,
			Addr: entry.Address(),
		})
	}
	return presets
}
