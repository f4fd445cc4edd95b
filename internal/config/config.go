// Package config loads the slotarray CLI configuration.
//
// Configuration is layered JSONC (comments and trailing commas allowed).
// Precedence, highest wins:
//
//  1. command-line flags
//  2. explicit --config file
//  3. project file .slotarray.json in the working directory
//  4. global file $XDG_CONFIG_HOME/slotarray/config.json
//     (or ~/.config/slotarray/config.json)
//  5. defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/slotarray/pkg/slotarray"
)

// Error variables for config loading.
var (
	ErrFileNotFound = errors.New("config file not found")
	ErrFileRead     = errors.New("cannot read config file")
	ErrInvalid      = errors.New("invalid config")
)

// FileName is the project config file name.
const FileName = ".slotarray.json"

// Config holds the CLI defaults for new stores and logging.
type Config struct {
	// DType is the default element type for create.
	DType string `json:"dtype,omitempty"`

	// Scheme is the default side-car scheme: "extents" or "occupancy".
	Scheme string `json:"scheme,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// Sources tracks which config files were loaded.
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DType:    slotarray.Uint8.String(),
		Scheme:   slotarray.SchemeExtents.String(),
		LogLevel: "warn",
	}
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDir    string            // directory searched for the project file
	ConfigPath string            // -c/--config flag value
	Overrides  Config            // flag values; empty fields do not override
	Env        map[string]string // environment variables
}

// Load resolves the configuration. See the package doc for precedence.
func Load(in LoadInput) (Config, error) {
	cfg := Default()

	if path := globalPath(in.Env); path != "" {
		global, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, global)
			cfg.Sources.Global = path
		}
	}

	projectPath := filepath.Join(in.WorkDir, FileName)
	mustExist := false

	if in.ConfigPath != "" {
		projectPath = in.ConfigPath
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(in.WorkDir, projectPath)
		}

		mustExist = true
	}

	project, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, project)
		cfg.Sources.Project = projectPath
	}

	cfg = merge(cfg, in.Overrides)

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// globalPath uses $XDG_CONFIG_HOME/slotarray/config.json if set, otherwise
// ~/.config/slotarray/config.json. Empty if neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "slotarray", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "slotarray", "config.json")
	}

	return ""
}

func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w %s: %w", ErrFileRead, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, true, nil
}

// Parse decodes one JSONC config document. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSONC: %w", ErrInvalid, err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var cfg Config

	err = dec.Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DType != "" {
		base.DType = overlay.DType
	}

	if overlay.Scheme != "" {
		base.Scheme = overlay.Scheme
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}

// Validate checks that every value parses.
func (c Config) Validate() error {
	_, err := slotarray.ParseDType(c.DType)
	if err != nil {
		return fmt.Errorf("%w: dtype: %w", ErrInvalid, err)
	}

	_, err = slotarray.ParseScheme(c.Scheme)
	if err != nil {
		return fmt.Errorf("%w: scheme: %w", ErrInvalid, err)
	}

	_, err = ParseLogLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalid, err)
	}

	return nil
}

// ParseLogLevel accepts debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(s))
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}

// Resolved holds the typed values of a validated Config.
type Resolved struct {
	DType    slotarray.DType
	Scheme   slotarray.Scheme
	LogLevel slog.Level
}

// Resolve returns the typed values. c must have passed Validate.
func (c Config) Resolve() Resolved {
	dtype, _ := slotarray.ParseDType(c.DType)
	scheme, _ := slotarray.ParseScheme(c.Scheme)
	level, _ := ParseLogLevel(c.LogLevel)

	return Resolved{DType: dtype, Scheme: scheme, LogLevel: level}
}

// Format renders c as JSON, without sources.
func Format(c Config) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format config: %w", err)
	}

	return string(data), nil
}
