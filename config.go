package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Config holds the process settings
type Config struct {
	Addr          string
	ClientDir     string
	DBPath        string // empty disables match history
	AdminPassword string // empty disables the admin API
	Seed          uint64 // non-zero makes match generation reproducible
	PublicURL     string // advertised in the QR code; derived from the request when empty
	Dev           bool
}

// LoadConfig parses flags; each flag falls back to a BOMBER_* variable
func LoadConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("bomber-server", flag.ContinueOnError)
	cfg := Config{}
	fs.StringVar(&cfg.Addr, "addr", envOr("BOMBER_ADDR", ":3000"), "HTTP listen address")
	fs.StringVar(&cfg.ClientDir, "client", envOr("BOMBER_CLIENT_DIR", "../frontend"), "Path to client directory")
	fs.StringVar(&cfg.DBPath, "db", envOr("BOMBER_DB", ""), "SQLite path for match history (empty disables)")
	fs.StringVar(&cfg.AdminPassword, "admin-password", envOr("BOMBER_ADMIN_PASSWORD", ""), "Operator password (empty disables admin API)")
	fs.StringVar(&cfg.PublicURL, "public-url", envOr("BOMBER_PUBLIC_URL", ""), "Public URL encoded in /qr.png")
	seed := fs.String("seed", envOr("BOMBER_SEED", "0"), "Base seed for map generation (0 = random)")
	var devDefault bool
	if v := envOr("BOMBER_DEV", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid BOMBER_DEV %q: %w", v, err)
		}
		devDefault = b
	}
	fs.BoolVar(&cfg.Dev, "dev", devDefault, "Development logging")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	v, err := strconv.ParseUint(*seed, 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("invalid seed %q: %w", *seed, err)
	}
	cfg.Seed = v
	return cfg, nil
}

// configExitCode reports a LoadConfig failure and returns the exit status
func configExitCode(err error, w io.Writer) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	fmt.Fprintf(w, "bomber-server: %v\n", err)
	return 2
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
