// Package config holds runtime configuration: defaults, the optional TOML
// file, and validation. CLI flags are applied on top by cmd/npy2mat.
package config

import (
	_ "embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [Load], then mutated by CLI flags before being passed (by
// pointer) to packages that need it.
type Config struct {
	Convert Convert `toml:"convert"`
	Logging Logging `toml:"logging"`
}

// Convert holds the conversion settings.
type Convert struct {
	SourceExt    string `toml:"source_ext"`    // Default: ".npy". Case-sensitive.
	DestExt      string `toml:"dest_ext"`      // Default: ".mat".
	VariableName string `toml:"variable_name"` // Default: "data".
	Compress     bool   `toml:"compress"`      // zlib-compress the matrix element.
}

// Logging holds display and log settings.
type Logging struct {
	File    string    `toml:"file"`  // Optional JSON log file path.
	Color   ColorMode `toml:"color"` // Default: "auto".
	Verbose bool      `toml:"verbose"`
}

// maxVariableName is the longest identifier MATLAB accepts.
const maxVariableName = 63

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Convert: Convert{
			SourceExt:    ".npy",
			DestExt:      ".mat",
			VariableName: "data",
		},
		Logging: Logging{
			Color: ColorAuto,
		},
	}
}

// DefaultConfigPath returns the per-user config file location:
// $XDG_CONFIG_HOME/npy2mat/config.toml, or ~/.config/npy2mat/config.toml.
func DefaultConfigPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, "npy2mat", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".config", "npy2mat", "config.toml"), nil
}

// Load builds the configuration: defaults, then the TOML file, then
// [Config.Validate]. With an empty path the per-user file is tried first and
// ./npy2mat.toml second. A missing file is not an error. Load returns the
// config, the path it resolved, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := DefaultConfig()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		f, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, errors.Wrap(err, "open config")
		}
		defer f.Close()

		dec := toml.NewDecoder(f).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, "", false, errors.WithHint(
				errors.Wrapf(err, "parse config %s", resolved),
				"run 'npy2mat config init' to write a commented sample")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, errors.Wrapf(err, "config %s", resolved)
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return path, false, nil
			}
			return "", false, errors.Wrap(err, "stat config")
		}
		return path, true, nil
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("npy2mat.toml")
	if err != nil {
		return "", false, errors.Wrap(err, "resolve project config")
	}

	for _, p := range []string{userPath, projectPath} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true, nil
		}
	}
	return userPath, false, nil
}

// CreateSample writes the commented sample configuration to path, creating
// its parent directory. An existing file is left alone.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.WithHint(errors.Newf("%s already exists", path),
			"remove it first or pass a different path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	return errors.Wrap(os.WriteFile(path, []byte(sampleConfig), 0o644), "write sample config")
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks extensions, the variable name and the color mode.
func (c *Config) Validate() error {
	for _, ext := range []struct{ key, val string }{
		{"source_ext", c.Convert.SourceExt},
		{"dest_ext", c.Convert.DestExt},
	} {
		if len(ext.val) < 2 || ext.val[0] != '.' || strings.ContainsAny(ext.val, `/\`) {
			return errors.Newf("invalid %s %q (use a leading dot, e.g. '.npy')", ext.key, ext.val)
		}
	}
	if c.Convert.SourceExt == c.Convert.DestExt {
		return errors.Newf("source_ext and dest_ext must differ (both %q)", c.Convert.SourceExt)
	}

	if !validVariableName(c.Convert.VariableName) {
		return errors.Newf("invalid variable_name %q (letter first, then letters, digits or '_', at most %d characters)",
			c.Convert.VariableName, maxVariableName)
	}

	switch c.Logging.Color {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.Newf("invalid color mode %q (use 'auto', 'always' or 'never')", c.Logging.Color)
	}
	return nil
}

// ValidatePaths requires both directory arguments. Source and destination
// may be the same directory: outputs carry a different extension and are
// skipped on a later run.
func (c *Config) ValidatePaths(sourceDir, destDir string) error {
	if strings.TrimSpace(sourceDir) == "" || strings.TrimSpace(destDir) == "" {
		return errors.New("need exactly source_dir and dest_dir")
	}
	return nil
}

func validVariableName(name string) bool {
	if name == "" || len(name) > maxVariableName {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '_' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
