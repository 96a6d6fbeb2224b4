package config

import (
	"os"
	"strings"
)

// Config holds runtime settings for the SyncList CLI.
//
// Fields:
//   - ServerURL: base http(s) URL of the backend REST API.
//   - DataDir: directory holding the tasks file and the metadata database.
//   - DeviceName: human-readable name announced when requesting a device code.
//   - DevIdentity: when set, the client skips tokens and sends this email in
//     the dev identity header. Only honored by servers running in dev mode.
type Config struct {
	ServerURL   string
	DataDir     string
	DeviceName  string
	DevIdentity string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = ".synclist"
	if host, err := os.Hostname(); err == nil && host != "" {
		c.DeviceName = host
	} else {
		c.DeviceName = "synclist-client"
	}
	c.DevIdentity = ""
}

// WebsocketURL derives the realtime endpoint from ServerURL: the scheme
// switches to ws(s) and the path is /ws.
func (c *Config) WebsocketURL() string {
	url := c.ServerURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return strings.TrimSuffix(url, "/") + "/ws"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
