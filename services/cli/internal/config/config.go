package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"

	"checkround/pkg/kv"
	"checkround/pkg/telemetry"
)

const (
	envPrefix      = "CHECKROUND_"
	defaultDataDir = ".checkround"
)

// Load reads the process environment and applies flag overrides.
func Load(ctx context.Context, o Overrides) (Config, error) {
	return load(ctx, envconfig.OsLookuper(), os.UserHomeDir, o)
}

func load(ctx context.Context, lookuper envconfig.Lookuper, home func() (string, error), o Overrides) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
	}); err != nil {
		return Config{}, err
	}

	var sh shared
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &sh, Lookuper: lookuper}); err != nil {
		return Config{}, err
	}
	cfg.OTLPEndpoint = sh.OTLPEndpoint
	cfg.AgeSecretKey = sh.AgeSecretKey
	cfg.AgePublicKey = sh.AgePublicKey

	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		dir, err := home()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(dir, defaultDataDir)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := kv.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("invalid %sBACKEND: %w", envPrefix, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case telemetry.FormatJSON, telemetry.FormatConsole:
	default:
		return fmt.Errorf("invalid %sLOG_FORMAT: %q", envPrefix, c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("invalid %sBCRYPT_COST: %d", envPrefix, c.BcryptCost)
	}
	return nil
}

// BackendKind returns the validated backend.
func (c Config) BackendKind() kv.Kind {
	kind, _ := kv.ParseKind(c.Backend)
	return kind
}

// Location resolves Timezone; "Local" and the empty string mean the system zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid %sTIMEZONE: %w", envPrefix, err)
	}
	return loc, nil
}
