package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.OutputPath)
	assert.Equal(t, "check", cfg.Target)
	assert.Equal(t, "none", cfg.Enforce)
	assert.False(t, cfg.TestMode)
	assert.Empty(t, cfg.Roots)
}

func TestParseRootMapping(t *testing.T) {
	m, err := ParseRootMapping("com.acme:interfaces/acme")
	require.NoError(t, err)
	assert.Equal(t, "com.acme", m.Prefix)
	assert.Equal(t, "interfaces/acme", m.Path)

	for _, bad := range []string{"", "com.acme", ":path", "com.acme:"} {
		_, err := ParseRootMapping(bad)
		assert.Error(t, err, bad)
	}
}

func TestRootMappings(t *testing.T) {
	cfg := &Config{Roots: []string{
		"com.acme:interfaces/acme",
		"org.widget:vendor/widget/interfaces",
	}}

	mappings, err := cfg.RootMappings()
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	assert.Equal(t, "org.widget", mappings[1].Prefix)

	cfg.Roots = append(cfg.Roots, "broken")
	_, err = cfg.RootMappings()
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("SIDLGEN_TARGET", "native")
	t.Setenv("SIDLGEN_TEST_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "native", cfg.Target)
	assert.True(t, cfg.TestMode)
}
