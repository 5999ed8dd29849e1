package config

import "os"

// DefaultAddr is the listen address used when no argument is given
const DefaultAddr = "127.0.0.1:80"

// ContactsFile is the contact directory read once at startup
const ContactsFile = "contacts.json"

// Config holds all application configuration.
type Config struct {
	Addr         string
	ContactsPath string
}

// New builds configuration from the command line: one optional positional
// argument, the listen address. No flags, no subcommands, no config file.
func New() *Config {
	cfg := &Config{
		Addr:         DefaultAddr,
		ContactsPath: ContactsFile,
	}

	if len(os.Args) > 1 {
		cfg.Addr = os.Args[1]
	}

	return cfg
}
