package wheel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("gme:weight=0.5:std_dev_window=20")
	require.NoError(t, err)

	want := DefaultConfig("GME")
	want.Weight = 0.5
	want.StdDevWindow = 20
	assert.Equal(t, want, cfg)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig("VTI")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig("VTI"), cfg)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig("GME:color=red")
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = ParseConfig("GME:sigma=lots")
	assert.ErrorContains(t, err, "could not convert value for field")

	_, err = ParseConfig("GME:sigma")
	assert.Error(t, err)

	_, err = ParseConfig(":sigma=1")
	assert.Error(t, err)
}

func TestConfigKeysMatchParser(t *testing.T) {
	for _, key := range ConfigKeys {
		_, err := ParseConfig("GME:" + key.Name + "=" + key.Default)
		assert.NoError(t, err, key.Name)
	}
}

func TestDedupeKeepsLast(t *testing.T) {
	a := DefaultConfig("A")
	b := DefaultConfig("B")
	a2 := DefaultConfig("A")
	a2.Weight = 0.9

	got := Dedupe([]Config{a, b, a2})

	assert.Equal(t, []Config{a2, b}, got)
}

func TestSideConditions(t *testing.T) {
	cfg := DefaultConfig("XYZ")
	call := option("CALL", 55, 0.3)
	put := option("PUT", 40, -0.3)

	assert.Len(t, cfg.CallConditions(), len(cfg.Conditions())+1)
	for _, c := range cfg.CallConditions() {
		assert.True(t, c(&call))
	}

	matched := true
	for _, c := range cfg.CallConditions() {
		matched = matched && c(&put)
	}
	assert.False(t, matched)
}
