package main

import (
	"flag"

	"github.com/danmuck/brctl/internal/config"
	"github.com/danmuck/brctl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", "fleet", "config kind: fleet")
	output := flag.String("output", "cmd/mcpctl/fleet.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "cmd/mcpctl/fleet.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadFleetConfig(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("configgen validate failed")
		}
		log.Info().
			Str("path", *input).
			Int("carriages", len(cfg.Carriages)).
			Msg("configgen validated fleet config")
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("configgen write failed")
	}
	log.Info().Str("kind", *kind).Str("path", *output).Msg("configgen wrote config template")
}
