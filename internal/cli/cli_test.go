package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullCommandLine(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{
		"-game", "defs",
		"-game-name", "hl2",
		"-profile", "fast",
		"-workers", "4",
		"-log-level", "DEBUG",
		"-log-format", "json",
		"-status-port", "8080",
		"-strict",
		"maps/de_test.vmf", "models/props/barrel.mdl",
	}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "defs", config.GameDir)
	assert.Equal(t, "hl2", config.GameName)
	assert.Equal(t, "fast", config.Profile)
	assert.Equal(t, 4, config.Workers)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, 8080, config.StatusPort)
	assert.True(t, config.Strict)
	assert.Equal(t, []string{"maps/de_test.vmf", "models/props/barrel.mdl"}, config.Assets)
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{"-game", "defs", "maps/a.vmf"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "default", config.Profile)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, "info", config.LogLevel)
	assert.Zero(t, config.Workers)
	assert.False(t, config.Strict)
}

func TestParseHelp(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, config)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseMissingGameDirPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{"maps/a.vmf"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, config)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "no asset paths",
			args:    []string{"-game", "defs"},
			wantMsg: "no asset paths given",
		},
		{
			name:    "bad log format",
			args:    []string{"-game", "defs", "-log-format", "xml", "a.vmf"},
			wantMsg: "invalid log-format",
		},
		{
			name:    "bad log level",
			args:    []string{"-game", "defs", "-log-level", "verbose", "a.vmf"},
			wantMsg: "invalid log-level",
		},
		{
			name:    "unknown flag",
			args:    []string{"--this-is-not-a-valid-flag"},
			wantMsg: "flag provided but not defined",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
