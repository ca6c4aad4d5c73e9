package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/osmike/strokes/internal/domain"
	errs "github.com/osmike/strokes/internal/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDoc = `
max_workers: 8
check_interval: 50ms
balancing_ratio: 20
level_of_detail: 2
log_level: warn
metrics_addr: ":2112"
`

const tomlDoc = `
max_workers = 8
check_interval = "50ms"
balancing_ratio = 20.0
level_of_detail = 2
history_db = "strokes.db"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name string
		file string
		doc  string
	}{
		{"yaml", "strokes.yaml", yamlDoc},
		{"yml", "strokes.yml", yamlDoc},
		{"toml", "strokes.toml", tomlDoc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load(writeFile(t, tt.file, tt.doc))
			require.NoError(t, err)
			assert.Equal(t, 8, f.MaxWorkers)
			assert.Equal(t, Duration(50*time.Millisecond), f.CheckInterval)
			assert.Equal(t, 20.0, f.BalancingRatio)
			assert.Equal(t, 2, f.LevelOfDetail)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "strokes.json", "{}"))
	assert.ErrorIs(t, err, errs.ErrConfigFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, errs.ErrConfigRead)

	_, err = Parse([]byte("check_interval: soon"), "yaml")
	assert.ErrorIs(t, err, errs.ErrConfigParse)

	_, err = Parse([]byte("max_workers = [1"), "toml")
	assert.ErrorIs(t, err, errs.ErrConfigParse)
}

func TestFile_Pool(t *testing.T) {
	f, err := Parse([]byte(yamlDoc), "yaml")
	require.NoError(t, err)

	called := false
	cfg, err := f.Pool(domain.Hooks{OnStrokeStarted: func(domain.StateDTO) { called = true }})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.CheckInterval)
	assert.Equal(t, 2, cfg.LevelOfDetail)
	require.NotNil(t, cfg.Logger)
	assert.False(t, cfg.Logger.Core().Enabled(-1), "debug is below warn")
	assert.True(t, cfg.Logger.Core().Enabled(1), "warn is enabled")

	cfg.Hooks.OnStrokeStarted(domain.StateDTO{})
	assert.True(t, called)

	_, err = File{LogLevel: "loud"}.Pool(domain.Hooks{})
	assert.ErrorIs(t, err, errs.ErrConfigParse)
}
