package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	DataDir       string
	SessionSecret string
	SessionMaxAge int
	AdminUser     string
	AdminPassword string

	// Monitored mesh-VPN interface and the tools used to inspect it.
	TailscaleInterface string
	TailscaleBin       string
	IPBin              string
	SysfsNetDir        string
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnvInt("TR_PORT", 8091),
		DataDir:       getEnvString("TR_DATA_DIR", "./data"),
		SessionSecret: getEnvString("TR_SESSION_SECRET", "change-me-in-production-32bytes!"),
		SessionMaxAge: getEnvInt("TR_SESSION_MAX_AGE", 86400), // 24 hours
		AdminUser:     getEnvString("TR_ADMIN_USER", "admin"),
		AdminPassword: getEnvString("TR_ADMIN_PASSWORD", "admin"),

		TailscaleInterface: getEnvString("TR_TS_INTERFACE", "tailscale0"),
		TailscaleBin:       getEnvString("TR_TAILSCALE_BIN", "tailscale"),
		IPBin:              getEnvString("TR_IP_BIN", "ip"),
		SysfsNetDir:        getEnvString("TR_SYSFS_NET", "/sys/class/net"),
	}

	os.MkdirAll(cfg.DataDir, 0755)

	return cfg
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
