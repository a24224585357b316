package datapipe

import (
	"os"

	"github.com/rs/zerolog"
)

// logger reports tolerated per-item failures (warn-only drops, non-strict
// reload fallbacks). It stays quiet on the happy path.
var logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "datapipe").Logger()

// SetLogger replaces the logger used for warn-level diagnostics. Hosts
// typically pass a child of their own root logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
