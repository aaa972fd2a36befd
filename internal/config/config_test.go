package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TR_DATA_DIR", t.TempDir())

	cfg := Load()

	assert.Equal(t, 8091, cfg.Port)
	assert.Equal(t, "tailscale0", cfg.TailscaleInterface)
	assert.Equal(t, "tailscale", cfg.TailscaleBin)
	assert.Equal(t, "ip", cfg.IPBin)
	assert.Equal(t, "/sys/class/net", cfg.SysfsNetDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TR_DATA_DIR", t.TempDir())
	t.Setenv("TR_PORT", "9000")
	t.Setenv("TR_TS_INTERFACE", "ts0")
	t.Setenv("TR_SYSFS_NET", "/tmp/fake-sysfs")

	cfg := Load()

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "ts0", cfg.TailscaleInterface)
	assert.Equal(t, "/tmp/fake-sysfs", cfg.SysfsNetDir)
}

func TestLoadIgnoresBadInt(t *testing.T) {
	t.Setenv("TR_DATA_DIR", t.TempDir())
	t.Setenv("TR_PORT", "not-a-port")

	cfg := Load()
	assert.Equal(t, 8091, cfg.Port)
}
