package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the tally binaries.
type Config struct {
	DBPath         string
	ListenAddr     string
	LogLevel       string
	LowStock       int
	RateBurst      int
	RatePerSec     float64
	MigrateOnStart bool
}

// Load reads a .env file when present, then the environment, falling back to
// defaults. Explicit environment variables win over .env entries.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := Config{
		DBPath:     getEnv("TALLY_DB_PATH", "tallybook.db"),
		ListenAddr: getEnv("TALLY_LISTEN_ADDR", "127.0.0.1:8787"),
		LogLevel:   strings.ToLower(getEnv("TALLY_LOG_LEVEL", "info")),
	}
	var err error
	if cfg.LowStock, err = parseInt("TALLY_LOW_STOCK", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = parseInt("TALLY_RATE_BURST", 50); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = parseFloat("TALLY_RATE_PER_SEC", 20); err != nil {
		return Config{}, err
	}
	if cfg.MigrateOnStart, err = parseBool("TALLY_MIGRATE_ON_START", true); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants Load cannot express as defaults.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("TALLY_DB_PATH must not be empty")
	}
	if err := RequireLoopback(c.ListenAddr); err != nil {
		return err
	}
	if c.LowStock < 0 {
		return errors.New("TALLY_LOW_STOCK must be >= 0")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

// RequireLoopback rejects listen addresses reachable from other machines.
func RequireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("TALLY_LISTEN_ADDR %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("TALLY_LISTEN_ADDR %q: only loopback addresses are allowed", addr)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q", key, v)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %q", key, v)
	}
	return f, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %q", key, v)
	}
	return b, nil
}
