package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// 指向不存在的目录，走纯默认值
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dsp-bridge", cfg.App.Name)
	assert.Equal(t, ":8086", cfg.TCP.Addr)
	assert.Equal(t, time.Duration(0), cfg.TCP.ReadTimeout)
	assert.Equal(t, 64, cfg.TCP.MaxConnections)
	assert.Equal(t, "drop-byte", cfg.Protocol.ResyncPolicy)
	assert.True(t, cfg.Protocol.ConsumeReadPadding)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "mock", cfg.Backend.Mode)
	assert.Equal(t, 0x0C, cfg.Backend.Fill)
	assert.Equal(t, 0x3B, cfg.Backend.I2C.DeviceAddr)
	assert.Equal(t, 5, cfg.Backend.Breaker.Threshold)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tcp:
  addr: ":9000"
  readTimeout: 30s
protocol:
  resyncPolicy: drop-buffer
  consumeReadPadding: false
backend:
  mode: i2c
  i2c:
    bus: "1"
    deviceAddr: 0x3A
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.TCP.Addr)
	assert.Equal(t, 30*time.Second, cfg.TCP.ReadTimeout)
	assert.Equal(t, "drop-buffer", cfg.Protocol.ResyncPolicy)
	assert.False(t, cfg.Protocol.ConsumeReadPadding)
	assert.Equal(t, "i2c", cfg.Backend.Mode)
	assert.Equal(t, "1", cfg.Backend.I2C.Bus)
	assert.Equal(t, 0x3A, cfg.Backend.I2C.DeviceAddr)
	// 未覆盖的键保持默认
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DSP_TCP_ADDR", ":7000")
	t.Setenv("DSP_BACKEND_MODE", "http")

	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.TCP.Addr)
	assert.Equal(t, "http", cfg.Backend.Mode)
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tcp: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
