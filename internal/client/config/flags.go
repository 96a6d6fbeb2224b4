package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/synclist/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend server (default from Config)
//	-d string   local data directory (default from Config)
//	-n string   device name (default from Config)
//	-e string   dev identity email
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-n", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the backend server")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "directory for local state")
	fs.StringVar(&cfg.DeviceName, "n", cfg.DeviceName, "device name announced during sign-in")
	fs.StringVar(&cfg.DevIdentity, "e", cfg.DevIdentity, "dev identity email (dev servers only)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
