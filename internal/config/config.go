// Package config provides functionality for managing configuration options
// for the server using command-line flags, environment variables and an
// optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// CleanupInterval is how often stale carts are purged.
	CleanupInterval time.Duration `json:"-"`

	// Retention is how long an untouched cart line is kept.
	Retention time.Duration `json:"-"`

	// Products is an optional JSON file of products imported at start.
	Products string `json:"products"`
}

// fileOptions is the config file layout; durations are Go duration strings.
type fileOptions struct {
	Options
	CleanupInterval string `json:"cleanup_interval"`
	Retention       string `json:"retention"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	register(flag.CommandLine, options)
}

func register(fs *flag.FlagSet, o *Options) {
	fs.StringVar(&o.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.Config, "config", "config.json", "path to config file")
	fs.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	fs.DurationVar(&o.CleanupInterval, "cleanup", time.Hour, "stale cart cleanup interval")
	fs.DurationVar(&o.Retention, "retention", 30*24*time.Hour, "keep untouched cart lines for this long")
	fs.StringVar(&o.Products, "products", "", "JSON file of products to import at start")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()
	if err := resolve(options, os.Getenv); err != nil {
		log.Fatalf("%v", err)
	}
	return options
}

// resolve applies the config file and then the environment on top of o.
// Environment variables win over the file; the file wins over flag defaults.
func resolve(o *Options, getenv func(string) string) error {
	if configPath := getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("error while reading config file: %w", err)
			}
			if err := applyFile(o, data); err != nil {
				return fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Port = serverAddress
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		o.DatabaseDSN = dsn
	}
	return nil
}

func applyFile(o *Options, data []byte) error {
	f := fileOptions{Options: *o}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.CleanupInterval != "" {
		d, err := time.ParseDuration(f.CleanupInterval)
		if err != nil {
			return fmt.Errorf("cleanup_interval: %w", err)
		}
		f.Options.CleanupInterval = d
	}
	if f.Retention != "" {
		d, err := time.ParseDuration(f.Retention)
		if err != nil {
			return fmt.Errorf("retention: %w", err)
		}
		f.Options.Retention = d
	}
	*o = f.Options
	return nil
}
