package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputs(values ...string) func() ([]byte, error) {
	return func() ([]byte, error) {
		if len(values) == 0 {
			return nil, errors.New("no more input")
		}
		v := values[0]
		values = values[1:]
		return []byte(v), nil
	}
}

func TestPromptConfirmed(t *testing.T) {
	var out bytes.Buffer

	got, err := promptConfirmed(&out, "API key", inputs("abc ", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	assert.Contains(t, out.String(), "Repeat for confirmation")
}

func TestPromptConfirmedAsksAgainOnMismatch(t *testing.T) {
	var out bytes.Buffer

	got, err := promptConfirmed(&out, "API key", inputs("abc", "abd", "xyz", "xyz"))
	require.NoError(t, err)
	assert.Equal(t, "xyz", got)
	assert.Contains(t, out.String(), "do not match")
}

func TestPromptConfirmedReadError(t *testing.T) {
	var out bytes.Buffer

	_, err := promptConfirmed(&out, "API key", inputs("abc"))
	assert.Error(t, err)
}
