// Package config loads runtime configuration for the SyncList CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend server
//	-d string   directory for local state (tasks file and metadata db)
//	-n string   device name announced during sign-in
//	-e string   dev identity email (dev servers only, bypasses tokens)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "data_dir": "/home/me/.synclist",
//	  "device_name": "work laptop",
//	  "dev_identity": ""
//	}
//
// Primary API
//
//   - type Config                     — server URL, data dir, device name, dev identity
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
