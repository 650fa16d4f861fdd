package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NodeLogger returns the global logger tagged with the node kind and id.
func NodeLogger(kind, id string) zerolog.Logger {
	return log.Logger.With().Str("kind", kind).Str("node", id).Logger()
}
