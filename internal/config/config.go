package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/freemank1224/vibe-word-master/internal/envfile"
)

// Check holds everything the freeze-check run needs. Loaded once at startup
// from a local env file; read-only afterwards.
type Check struct {
	SupabaseURL         string        `env:"SUPABASE_URL,notEmpty"`
	AnonKey             string        `env:"SUPABASE_ANON_KEY,notEmpty"`
	RPCTimeout          time.Duration `env:"RPC_TIMEOUT_SECONDS" envDefault:"20s"`
	TimezoneOffsetHours int           `env:"TZ_OFFSET_HOURS" envDefault:"8"`
}

// Load reads the env file at path and parses it into a Check config.
//
// Only the file feeds the struct; the process environment is deliberately
// ignored so the run is reproducible from the file alone.
func Load(path string) (*Check, error) {
	values, err := envfile.Load(path)
	if err != nil {
		return nil, err
	}

	cfg := &Check{}
	opts := env.Options{Environment: values}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
