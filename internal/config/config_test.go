package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisp-notify/wisp/internal/model"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, model.EdgeTop, cfg.EdgeFor())
	assert.Equal(t, 5*time.Second, cfg.Display.Timeout.Duration())
	assert.True(t, cfg.Display.Stack)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.toml")
	content := `
[display]
position = "bottom-right"
width = 500
timeout = "2s"
gap = 4
background = "#30303080"

[audio]
enabled = true
volume = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, model.EdgeBottomRight, cfg.EdgeFor())
	assert.Equal(t, 500, cfg.Display.Width)
	assert.Equal(t, 2*time.Second, cfg.Display.Timeout.Duration())
	assert.Equal(t, 4, cfg.Display.Gap)
	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, 50, cfg.Audio.Volume)

	// Unset keys keep their defaults.
	assert.Equal(t, Default().Display.Font, cfg.Display.Font)
	assert.Equal(t, Default().Display.DefaultOffset, cfg.Display.DefaultOffset)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad position": `[display]
position = "middle"`,
		"bad color": `[display]
background = "#zzzzzz"`,
		"bad volume": `[audio]
volume = 150`,
		"bad toml": `[[display`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration

	require.NoError(t, d.UnmarshalText([]byte("5s")))
	assert.Equal(t, 5*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("1500")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())
	assert.EqualValues(t, 1500, d.Milliseconds())

	require.NoError(t, d.UnmarshalText([]byte("0")))
	assert.Equal(t, time.Duration(0), d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestColor_RGBA(t *testing.T) {
	col, alpha, err := Color("#ff0000").RGBA()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, col.R, 0.001)
	assert.InDelta(t, 0.0, col.G, 0.001)
	assert.Equal(t, 1.0, alpha)

	_, alpha, err = Color("#00ff0080").RGBA()
	require.NoError(t, err)
	assert.InDelta(t, 128.0/255.0, alpha, 0.001)

	_, _, err = Color("red").RGBA()
	assert.Error(t, err)

	_, _, err = Color("#12345").RGBA()
	assert.Error(t, err)
}

func TestStylePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	assert.Equal(t, "/tmp/xdg/wisp/config.toml", StylePath(""))
	assert.Equal(t, "/tmp/xdg/wisp/urgent.toml", StylePath("urgent"))
	assert.Equal(t, "/tmp/custom/style.toml", StylePath("/tmp/custom/style.toml"))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Display.Position = string(model.EdgeBottomLeft)
	cfg.Display.Width = 420
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
