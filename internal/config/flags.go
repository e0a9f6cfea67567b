package config

import (
	"github.com/spf13/pflag"
)

// Flags are the process command line options.
type Flags struct {
	ConfigPath string
	EnvFile    string
	Once       bool
	Verbose    bool
}

func ParseFlags(name string, args []string) (Flags, error) {
	var f Flags
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	fs.StringVar(&f.EnvFile, "env-file", "", "path to a .env file")
	fs.BoolVar(&f.Once, "once", false, "evaluate the strategy once and exit instead of running a loop")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}
