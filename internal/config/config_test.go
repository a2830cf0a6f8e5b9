package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/collision"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/meshopt"
	"wcs-converter/internal/shader"
)

const sample = `
input_dir = "data/models"
workers = 3
format = "json"

[collision]
shape = "box"
max_vertices = 32

[optimization]
target = "mobile_high"
max_materials_per_mesh = 3

[shader]
use_simplified_shaders = true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "data/models", cfg.InputDir)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.ExportTextures, "unset keys keep their defaults")

	assert.Equal(t, collision.Box, cfg.Collision.Shape)
	assert.Equal(t, 32, cfg.Collision.MaxVertices)
	assert.Equal(t, collision.DefaultSettings().MaxHulls, cfg.Collision.MaxHulls)

	want, err := meshopt.ProfileFor(meshopt.MobileHigh)
	require.NoError(t, err)
	want.MaxMaterialsPerMesh = 3
	assert.Equal(t, want, cfg.Optimization)

	assert.True(t, cfg.Shader.UseSimplifiedShaders)
	assert.Equal(t, shader.DefaultConfiguration().TextureAnimationFPS, cfg.Shader.TextureAnimationFPS)
	require.NoError(t, cfg.Validate())
}

func TestParseRejectsUnknownTarget(t *testing.T) {
	_, err := Parse([]byte("[optimization]\ntarget = \"console\"\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pofconv.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Format)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Collision.Shape = collision.Capsule
	cfg.LOD = lod.Settings{ReferenceRadius: 25}
	data, err := cfg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "capsule")

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, collision.Capsule, back.Collision.Shape)
	assert.Equal(t, float32(25), back.LOD.ReferenceRadius)
	assert.Equal(t, cfg.Optimization, back.Optimization)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	models := filepath.Join(root, "data", "models")
	require.NoError(t, os.MkdirAll(models, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data", "maps"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data", "tables"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "data", "tables", "ships.tbl"), nil, 0644))

	cfg := Default()
	cfg.OutputDir = "out"
	require.NoError(t, cfg.Resolve(Flags{InputDir: models, Target: "web_gl1", Verbose: true}))

	assert.Equal(t, filepath.Join(models, "out"), cfg.OutputDir)
	assert.Equal(t, []string{models, filepath.Join(root, "data", "maps")}, cfg.TextureDirs)
	assert.Equal(t, []string{filepath.Join(root, "data", "tables", "ships.tbl")}, cfg.ShipTables)
	assert.Equal(t, meshopt.WebGL1, cfg.Optimization.Target)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "godot", cfg.Format)
}

func TestResolveFlagsWin(t *testing.T) {
	cfg := Default()
	cfg.Workers = 2
	require.NoError(t, cfg.Resolve(Flags{InputDir: t.TempDir(), Workers: 7, Format: "json", LogLevel: "debug"}))
	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "debug", cfg.LogLevel)

	assert.ErrorIs(t, cfg.Resolve(Flags{Target: "console"}), meshopt.ErrInvalidProfile)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Collision.MaxHulls = 99
	assert.ErrorIs(t, cfg.Validate(), collision.ErrInvalidSettings)

	cfg = Default()
	cfg.Shader.MaxShaderComplexity = 9
	assert.ErrorIs(t, cfg.Validate(), shader.ErrInvalidConfiguration)

	cfg = Default()
	cfg.LOD.Distances = []float32{1, 2}
	assert.ErrorIs(t, cfg.Validate(), lod.ErrInvalidDistances)
}
