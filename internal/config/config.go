package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"wcs-converter/internal/collision"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/meshopt"
	"wcs-converter/internal/shader"
)

// Config holds all configurable paths and conversion settings.
type Config struct {
	// Paths
	InputDir     string   `toml:"input_dir"`
	OutputDir    string   `toml:"output_dir"`
	TextureDirs  []string `toml:"texture_dirs"`
	ShipTables   []string `toml:"ship_tables"`
	ResourceRoot string   `toml:"resource_root"`

	// Run settings
	Format         string `toml:"format"`
	Workers        int    `toml:"workers"`
	LogLevel       string `toml:"log_level"`
	Verbose        bool   `toml:"verbose"`
	ExportTextures bool   `toml:"export_textures"`
	LODMeshes      bool   `toml:"lod_meshes"`
	MergeDebris    bool   `toml:"merge_debris"`

	Collision    collision.Settings   `toml:"collision"`
	Optimization meshopt.Profile      `toml:"optimization"`
	Shader       shader.Configuration `toml:"shader"`
	LOD          lod.Settings         `toml:"lod"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Format:         "godot",
		LogLevel:       "info",
		ExportTextures: true,
		Collision:      collision.DefaultSettings(),
		Optimization:   meshopt.DefaultProfile(),
		Shader:         shader.DefaultConfiguration(),
	}
}

// Load reads a TOML config file over the defaults. The optimisation section starts from the
// built-in profile of its target, so a file may name a target and override single caps.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	p, err := meshopt.ProfileFor(cfg.Optimization.Target)
	if err != nil {
		return Config{}, err
	}
	cfg.Optimization = p
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	var b bytes.Buffer
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(err, "config: encode")
	}
	return b.Bytes(), nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir    string
	OutputDir   string
	TextureDirs []string
	Format      string
	Target      string
	Workers     int
	LogLevel    string
	Verbose     bool
}

// Resolve applies flag overrides and fills any empty fields with defaults. A target given
// on the command line replaces the whole optimisation section with that target's profile.
func (c *Config) Resolve(flags Flags) error {
	// CLI flags override config file
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if len(flags.TextureDirs) > 0 {
		c.TextureDirs = flags.TextureDirs
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.Verbose {
		c.Verbose = true
	}
	if flags.Target != "" {
		var t meshopt.Target
		if err := t.UnmarshalText([]byte(flags.Target)); err != nil {
			return err
		}
		p, err := meshopt.ProfileFor(t)
		if err != nil {
			return err
		}
		c.Optimization = p
	}

	if c.InputDir == "" {
		c.InputDir, _ = os.Getwd()
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "converted")
	} else if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.InputDir, c.OutputDir)
	}
	if len(c.TextureDirs) == 0 {
		c.TextureDirs = findTextureDirs(c.InputDir)
	}
	if len(c.ShipTables) == 0 {
		c.ShipTables = findShipTables(c.InputDir)
	}
	if c.Format == "" {
		c.Format = "godot"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// Validate checks every settings section and reports the first that is out of range.
func (c *Config) Validate() error {
	if err := c.Collision.Validate(); err != nil {
		return errors.Wrap(err, "config: [collision]")
	}
	if err := c.Optimization.Validate(); err != nil {
		return errors.Wrap(err, "config: [optimization]")
	}
	if err := c.Shader.Validate(); err != nil {
		return errors.Wrap(err, "config: [shader]")
	}
	if err := c.LOD.Validate(); err != nil {
		return errors.Wrap(err, "config: [lod]")
	}
	return nil
}

// Models are usually kept in data/models with their textures in data/maps.
func findTextureDirs(inputDir string) []string {
	dirs := []string{inputDir}
	for _, d := range []string{
		filepath.Join(inputDir, "maps"),
		filepath.Join(inputDir, "..", "maps"),
	} {
		if st, err := os.Stat(d); err == nil && st.IsDir() {
			dirs = append(dirs, filepath.Clean(d))
		}
	}
	return dirs
}

func findShipTables(inputDir string) []string {
	candidates := []string{
		filepath.Join(inputDir, "ships.tbl"),
		filepath.Join(inputDir, "..", "tables", "ships.tbl"),
	}
	var found []string
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			found = append(found, filepath.Clean(c))
		}
	}
	return found
}
