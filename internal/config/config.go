// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads bridge configuration from a YAML file overlaid by
// command line flags.
//
// Precedence, highest first: flags set on the command line, the config file,
// flag defaults, Default.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/mfkl/vlclr/internal/loader"
	"github.com/mfkl/vlclr/internal/xdg"
	"github.com/mfkl/vlclr/pkg/errutil"
)

// validate is a package-level singleton; validators cache struct metadata.
var validate = validator.New()

// Config is the bridge configuration.
type Config struct {
	Module  ModuleConfig  `koanf:"module"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ModuleConfig selects and locates the managed module: Library, or Name (a
// module found in Dir by its descriptor). Commands that load a module check
// this with RequireModule.
type ModuleConfig struct {
	Library     string         `koanf:"library"`
	Name        string         `koanf:"name"`
	Dir         string         `koanf:"dir"`
	Variant     string         `koanf:"variant" validate:"oneof=interface filter"`
	SearchDirs  []string       `koanf:"search_dirs" validate:"dive,required"`
	Symbols     loader.Symbols `koanf:"symbols"`
	CallTimeout time.Duration  `koanf:"call_timeout" validate:"gte=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" validate:"oneof=json text"`
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
}

// MetricsConfig configures the metrics endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

// Default values.
const (
	DefaultVariant     = "interface"
	DefaultLogFormat   = "text"
	DefaultLogLevel    = "info"
	DefaultCallTimeout = 5 * time.Second
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Module: ModuleConfig{
			Variant:     DefaultVariant,
			CallTimeout: DefaultCallTimeout,
		},
		Log: LogConfig{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
	}
}

// flagKeys maps flag names to config keys. Flags not listed are not
// configuration (for example --config itself).
var flagKeys = map[string]string{
	"library":      "module.library",
	"module":       "module.name",
	"modules-dir":  "module.dir",
	"variant":      "module.variant",
	"search-dir":   "module.search_dirs",
	"call-timeout": "module.call_timeout",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// BindFlags registers the configuration flags on flags with defaults from
// Default.
func BindFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String("library", d.Module.Library, "managed module library name or path")
	flags.String("module", d.Module.Name, "module to activate by name or shortcut from the modules directory")
	flags.String("modules-dir", d.Module.Dir, "directory of module descriptors (default: XDG_DATA_HOME/vlclr/modules)")
	flags.String("variant", d.Module.Variant, "module variant (interface or filter)")
	flags.StringSlice("search-dir", nil, "additional library search directory (repeatable)")
	flags.Duration("call-timeout", d.Module.CallTimeout, "timeout for a single call into a script module")
	flags.String("log-format", d.Log.Format, "log format (json or text)")
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn or error)")
	flags.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// Load reads the config file at path and overlays flags, which may be nil.
// An empty path reads the default file if it exists.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, oops.Code(errutil.CodeConfigInvalid).
					In("config").
					With("path", path).
					Wrapf(err, "failed to load config file")
			}
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(errutil.CodeConfigInvalid).In("config").Wrapf(err, "failed to load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(errutil.CodeConfigInvalid).In("config").Wrapf(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code(errutil.CodeConfigInvalid).In("config").Wrap(err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
	}
	return oops.Code(errutil.CodeConfigInvalid).
		In("config").
		With("fields", fields).
		Errorf("invalid configuration: %s", strings.Join(fields, ", "))
}

// RequireModule reports a CONFIG_INVALID error when neither Module.Library
// nor Module.Name is set.
func (c *Config) RequireModule() error {
	if c.Module.Library == "" && c.Module.Name == "" {
		return oops.Code(errutil.CodeConfigInvalid).
			In("config").
			With("fields", []string{"module.library", "module.name"}).
			Errorf("no module configured: set module.library or module.name")
	}
	return nil
}

// Variant returns the loader variant.
func (c *Config) Variant() loader.Variant {
	if c.Module.Variant == "filter" {
		return loader.VariantFilter
	}
	return loader.VariantInterface
}

// LoaderConfig returns the loader configuration for Module.Library.
func (c *Config) LoaderConfig() loader.Config {
	return loader.Config{
		Library:    c.Module.Library,
		Variant:    c.Variant(),
		Symbols:    c.Module.Symbols,
		SearchDirs: append([]string(nil), c.Module.SearchDirs...),
	}
}

// ModulesDir returns Module.Dir or the XDG default.
func (c *Config) ModulesDir() (string, error) {
	if c.Module.Dir != "" {
		return c.Module.Dir, nil
	}
	return xdg.ModulesDir()
}

// SlogLevel returns the log level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// WriteDefault writes a starter config file to path. An existing file is
// left alone.
func WriteDefault(path string) error {
	const starter = `# vlclr configuration
module:
  # library: libmanaged.so
  variant: interface
  search_dirs: []
log:
  format: text
  level: info
metrics:
  addr: ""
`
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // path is chosen by the user
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return oops.In("config").With("path", path).Wrapf(err, "failed to create config file")
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(starter); err != nil {
		return oops.In("config").With("path", path).Wrapf(err, "failed to write config file")
	}
	return nil
}
