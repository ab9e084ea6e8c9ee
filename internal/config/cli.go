package config

import "github.com/alecthomas/kong"

// Meta holds static metadata about the binary. Nothing in this module
// populates or reads it.
type Meta struct {
	ID      string
	Name    string
	Desc    string
	URL     string
	Version string
}

// Cli holds the demo CLI's global flags. Subcommands are defined in
// cmd/vfszip, since they depend on pkg/vfszip and this package does not.
type Cli struct {
	Version kong.VersionFlag `kong:"help='Print version and exit.'"`

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`
}
