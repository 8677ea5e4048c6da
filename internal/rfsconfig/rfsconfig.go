// Package rfsconfig loads the server's optional YAML configuration
// file. Command-line flags always take precedence over file values;
// file values take precedence over the defaults in Default().
package rfsconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every server-side setting that is not part of the
// wire-protocol client contract (which is limited to the two
// environment variables documented in pkg/rfsclient).
type Config struct {
	Addr        string `yaml:"addr"`
	Root        string `yaml:"root"`
	Level       string `yaml:"level"`
	LogFile     string `yaml:"logfile"`
	AdminSocket string `yaml:"admin_socket"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration used when no file is
// given and no flags override it.
func Default() Config {
	return Config{
		Addr:        ":15440",
		Root:        ".",
		Level:       "info",
		AdminSocket: "/tmp/rfsd.admin.sock",
	}
}

// Load reads a YAML file at path and merges it over Default(). An
// empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Override copies onto cfg the value of every flag named in flagSet
// (the flags set on the command line, even to an empty value) and
// returns the result. Called with the flag.Value results after
// flag.Parse, so that flags win over file values, which won over
// defaults.
func Override(cfg Config, addr, root, level, logfile, admin, metricsAddr string, flagSet map[string]bool) Config {
	if flagSet["addr"] {
		cfg.Addr = addr
	}
	if flagSet["root"] {
		cfg.Root = root
	}
	if flagSet["level"] {
		cfg.Level = level
	}
	if flagSet["logfile"] {
		cfg.LogFile = logfile
	}
	if flagSet["admin"] {
		cfg.AdminSocket = admin
	}
	if flagSet["metrics-addr"] {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg
}
