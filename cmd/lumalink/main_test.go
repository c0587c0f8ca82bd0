package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/lumalink/internal/codebook"
	"github.com/verte-zerg/lumalink/internal/config"
	"github.com/verte-zerg/lumalink/internal/generator"
	"github.com/verte-zerg/lumalink/internal/model"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Transmit.Code)
	assert.Nil(t, cfg.Receive.Timeout)
	assert.Nil(t, cfg.Stats.CurveWindow)
	assert.Contains(t, defaultConfigTemplate(), `# timeout = "30s"`)
}

func TestApplyConfigFlagWins(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var code string
	var fps float64
	cmd.Flags().StringVar(&code, "code", "", "")
	cmd.Flags().Float64Var(&fps, "fps", 60, "")
	require.NoError(t, cmd.Flags().Set("code", "1010"))

	fileCode := "1100"
	fileFPS := 90.0
	applyStringConfig(cmd, "code", &code, &fileCode)
	applyFloatConfig(cmd, "fps", &fps, &fileFPS)

	assert.Equal(t, "1010", code)
	assert.Equal(t, 90.0, fps)

	applyFloatConfig(cmd, "fps", &fps, nil)
	assert.Equal(t, 90.0, fps)
}

func TestResolveTransmitCode(t *testing.T) {
	book := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(book, []byte("door = 1011\n"), 0o644))
	gen := generator.NewSeeded(7)

	code, err := resolveTransmitCode(model.TransmitConfig{Code: "0110"}, gen, book)
	require.NoError(t, err)
	assert.Equal(t, "0110", code)

	code, err = resolveTransmitCode(model.TransmitConfig{Code: "@door"}, gen, book)
	require.NoError(t, err)
	assert.Equal(t, "1011", code)

	_, err = resolveTransmitCode(model.TransmitConfig{Code: "@gate"}, gen, book)
	require.ErrorIs(t, err, codebook.ErrUnknownName)

	code, err = resolveTransmitCode(model.TransmitConfig{Random: 12}, gen, book)
	require.NoError(t, err)
	assert.Len(t, code, 12)

	_, err = resolveTransmitCode(model.TransmitConfig{Code: "0110", Random: 4}, gen, book)
	require.Error(t, err)
	_, err = resolveTransmitCode(model.TransmitConfig{}, gen, book)
	require.Error(t, err)
	_, err = resolveTransmitCode(model.TransmitConfig{Code: "01a0"}, gen, book)
	require.Error(t, err)
}

func TestValidateReceiveConfig(t *testing.T) {
	require.NoError(t, validateReceiveConfig(model.ReceiveConfig{Threshold: 128, Timeout: 30 * time.Second}))
	require.NoError(t, validateReceiveConfig(model.ReceiveConfig{}))
	require.Error(t, validateReceiveConfig(model.ReceiveConfig{Threshold: 300}))
	require.Error(t, validateReceiveConfig(model.ReceiveConfig{Timeout: -time.Second}))
}

func TestBuildStatsConfig(t *testing.T) {
	cfg, err := buildStatsConfig("receive", "2026-01-02", 10, 5, "1100, 1011,")
	require.NoError(t, err)
	assert.Equal(t, model.KindReceive, cfg.Kind)
	require.NotNil(t, cfg.Since)
	assert.Equal(t, 2026, cfg.Since.Year())
	assert.Equal(t, 10, cfg.Last)
	assert.Equal(t, 5, cfg.CurveWindow)
	assert.Equal(t, []string{"1100", "1011"}, cfg.Codes)

	_, err = buildStatsConfig("practice", "", 0, 5, "")
	require.Error(t, err)
	_, err = buildStatsConfig("", "yesterday", 0, 5, "")
	require.Error(t, err)
	_, err = buildStatsConfig("", "", 0, 0, "")
	require.Error(t, err)
	_, err = buildStatsConfig("", "", 0, 5, "10x")
	require.Error(t, err)
}
