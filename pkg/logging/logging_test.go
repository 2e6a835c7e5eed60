package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer

	assert.Equal(t, zerolog.WarnLevel, Setup(&buf, ""))
	assert.Equal(t, zerolog.WarnLevel, Setup(&buf, "bogus"))
	assert.Equal(t, zerolog.DebugLevel, Setup(&buf, "debug"))

	log.Debug().Str("symbol", "GME").Msg("fetching quote")
	assert.Contains(t, buf.String(), "fetching quote")
	assert.Contains(t, buf.String(), "GME")
}

func TestSetupSuppressesBelowLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup(&buf, "warn")

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "debug", Level("warn", true, true))
	assert.Equal(t, "info", Level("warn", true, false))
	assert.Equal(t, "error", Level("error", false, false))
}
