package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore maps to
// a nested key: SCHEDULER_JOBS__STATIC_ROOM_PASSWORD__DAYS_LIMIT sets
// jobs.static_room_password.days_limit.
const EnvPrefix = "SCHEDULER_"

// SecretPrefix marks a value that must be resolved through a SecretResolver.
const SecretPrefix = "vault:"

// SecretResolver resolves references of the form vault:<mount>/<path>#<key>.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// LoadOptions locates the optional configuration sources.
type LoadOptions struct {
	// File is a YAML file. When empty, SCHEDULER_CONFIG is consulted.
	File string
	// EnvFile is a dotenv file loaded into the process environment before
	// the overlay is applied. Missing files are ignored.
	EnvFile string
	// Secrets resolves vault: references. Required only when one is present.
	Secrets SecretResolver
}

var validate = validator.New()

// Load builds the configuration from defaults, an optional YAML file and the
// SCHEDULER_ environment overlay, resolves secret references and validates
// the result.
func Load(ctx context.Context, opts LoadOptions) (Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load env file %s: %w", opts.EnvFile, err)
		}
	}

	k := koanf.New(".")

	path := opts.File
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG"))
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: env overlay: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := resolveSecrets(ctx, &cfg, opts.Secrets); err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
}

func resolveSecrets(ctx context.Context, cfg *Config, resolver SecretResolver) error {
	fields := map[string]*string{
		"database.dsn":   &cfg.Database.DSN,
		"redis.password": &cfg.Redis.Password,
	}
	for name, value := range fields {
		if !strings.HasPrefix(*value, SecretPrefix) {
			continue
		}
		if resolver == nil {
			return fmt.Errorf("config: %s references a secret but no resolver is configured", name)
		}
		resolved, err := resolver.Resolve(ctx, strings.TrimPrefix(*value, SecretPrefix))
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", name, err)
		}
		*value = resolved
	}
	return nil
}

func validateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	if cfg.Jobs.DefaultOrganizer.Enabled && cfg.Jobs.DefaultOrganizer.Email == "" {
		return errors.New("config: jobs.static_room_default_organizer.email is required when the job is enabled")
	}
	return nil
}
