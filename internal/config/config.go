package config

import (
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config holds the process settings for the HyperXO server and tools.
type Config struct {
	Host          string
	Port          int
	LogLevel      string
	LogJSON       bool
	AllowedDepths []int
	DefaultDepth  int
	ThinkDelayMin time.Duration
	ThinkDelayMax time.Duration
	SessionTTL    time.Duration
	ReapInterval  time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8000,
		LogLevel:      "info",
		AllowedDepths: []int{3, 5, 8},
		DefaultDepth:  3,
		ThinkDelayMin: time.Second,
		ThinkDelayMax: 2 * time.Second,
		SessionTTL:    30 * time.Minute,
		ReapInterval:  time.Minute,
	}
}

// Load returns the defaults overridden by HYPERXO_* environment variables.
func Load() (Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv applies overrides read through lookup.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if v, ok := lookup("HYPERXO_HOST"); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := lookup("HYPERXO_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "HYPERXO_PORT %q", v)
		}
		cfg.Port = port
	}
	if v, ok := lookup("HYPERXO_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("HYPERXO_LOG_JSON"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "HYPERXO_LOG_JSON %q", v)
		}
		cfg.LogJSON = b
	}
	if v, ok := lookup("HYPERXO_DEPTHS"); ok && v != "" {
		depths, err := ParseDepths(v)
		if err != nil {
			return cfg, err
		}
		cfg.AllowedDepths = depths
		cfg.DefaultDepth = depths[0]
	}
	if v, ok := lookup("HYPERXO_SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "HYPERXO_SESSION_TTL %q", v)
		}
		cfg.SessionTTL = d
	}
	return cfg, cfg.Validate()
}

// ParseDepths parses a comma separated depth list such as "3,5,8".
func ParseDepths(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "depth %q", part)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, errors.New("no depths given")
	}
	return out, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if len(c.AllowedDepths) == 0 {
		return errors.New("at least one search depth must be allowed")
	}
	for _, d := range c.AllowedDepths {
		if d < 1 {
			return errors.Errorf("search depth %d must be positive", d)
		}
	}
	if !c.DepthAllowed(c.DefaultDepth) {
		return errors.Errorf("default depth %d is not allowed", c.DefaultDepth)
	}
	if c.ThinkDelayMin < 0 || c.ThinkDelayMax < c.ThinkDelayMin {
		return errors.Errorf("think delay range %s..%s is invalid", c.ThinkDelayMin, c.ThinkDelayMax)
	}
	if c.SessionTTL <= 0 {
		return errors.Errorf("session ttl %s must be positive", c.SessionTTL)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return nil
}

// DepthAllowed reports whether d is one of the allowed depths.
func (c Config) DepthAllowed(d int) bool {
	for _, a := range c.AllowedDepths {
		if a == d {
			return true
		}
	}
	return false
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Logger builds the process logger writing to w.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if !c.LogJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
