package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/bsp/bsptest"
	"wcs-converter/internal/config"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/logging"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/pof/poftest"
)

type vec = mathutil.Vec3

func rapier() []byte {
	f := poftest.New(2117)
	f.Chunk("HDR2", poftest.HeaderPayload(2117, poftest.Header{
		MaxRadius:     20,
		NumSubObjects: 2,
		BBox:          mathutil.BoundingBox{Min: vec{-10, -10, -10}, Max: vec{10, 10, 10}},
		Detail:        []int32{0},
	}))
	f.Chunk("TXTR", poftest.TexturesPayload("hull", "missing-decal"))
	f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "detail0", bsptest.Triangle(0))))
	turret := poftest.NewSubObject(1, "turret", bsptest.Triangle(1))
	turret.Parent = 0
	turret.Offset = vec{0, 2, 0}
	turret.Properties = "$special=subsystem"
	f.Chunk("OBJ2", poftest.SubObjectPayload(turret))
	f.Chunk("GPNT", poftest.BanksPayload([]poftest.Point{{Position: vec{1, 0, 0}, Normal: vec{0, 0, 1}}}))
	return f.Bytes()
}

type fixture struct {
	cfg  config.Config
	pof  string
	root string
}

func setup(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	models := filepath.Join(root, "models")
	maps := filepath.Join(root, "maps")
	require.NoError(t, os.MkdirAll(models, 0755))
	require.NoError(t, os.MkdirAll(maps, 0755))

	path := filepath.Join(models, "Rapier.pof")
	require.NoError(t, os.WriteFile(path, rapier(), 0644))

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(maps, "hull.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	table := "$Name: Rapier\n$Species: Terran\n$Manufacturer: Confed\n$POF file: rapier.pof\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "ships.tbl"), []byte(table), 0644))

	cfg := config.Default()
	cfg.ShipTables = []string{filepath.Join(root, "ships.tbl")}
	require.NoError(t, cfg.Resolve(config.Flags{InputDir: models, OutputDir: filepath.Join(root, "out"), Workers: 1}))
	return fixture{cfg: cfg, pof: path, root: root}
}

func convert(t *testing.T, cfg config.Config, path string) (*Result, error) {
	t.Helper()
	c, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	return c.Convert(context.Background(), path)
}

func kinds(arts []Artifact, kind string) []string {
	var out []string
	for _, a := range arts {
		if a.Kind == kind {
			out = append(out, a.Name)
		}
	}
	return out
}

func TestConvertGodot(t *testing.T) {
	fx := setup(t)
	res, err := convert(t, fx.cfg, fx.pof)
	require.NoError(t, err)

	assert.Equal(t, "rapier", res.Scene)
	assert.Equal(t, int32(2117), res.Version)
	assert.True(t, res.Validation.IsValid)
	assert.Equal(t, []string{"detail0", "turret"}, kinds(res.Artifacts, ArtifactMesh))
	assert.Equal(t, []string{"detail0", "turret"}, kinds(res.Artifacts, ArtifactCollision))
	assert.Len(t, res.Optimization, 2)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, ArtifactTexture, failed[0].Kind)
	assert.Equal(t, "missing-decal", failed[0].Name)

	out := filepath.Join(fx.root, "out", "rapier")
	assert.FileExists(t, filepath.Join(out, "rapier.tscn"))
	assert.FileExists(t, filepath.Join(out, "textures", "hull.webp"))
	assert.FileExists(t, filepath.Join(out, "meshes", "rapier_turret.obj"))
	assert.FileExists(t, filepath.Join(out, "intel", "rapier_intel.tres"))
	assert.Contains(t, res.Created, filepath.Join(out, "textures", "hull.webp"))
}

func TestConvertJSONWithLODMeshes(t *testing.T) {
	fx := setup(t)
	fx.cfg.Format = "json"
	fx.cfg.LODMeshes = true
	fx.cfg.ExportTextures = false
	res, err := convert(t, fx.cfg, fx.pof)
	require.NoError(t, err)
	assert.Empty(t, res.Failed())
	assert.Empty(t, kinds(res.Artifacts, ArtifactTexture))

	out := filepath.Join(fx.root, "out", "rapier")
	assert.FileExists(t, filepath.Join(out, "rapier.json"))
	assert.FileExists(t, filepath.Join(out, "meshes", "rapier_rapier_lod1.obj"))
	assert.NoFileExists(t, filepath.Join(out, "textures", "hull.webp"))
}

func TestConvertLODTextures(t *testing.T) {
	fx := setup(t)
	fx.cfg.LODMeshes = true
	res, err := convert(t, fx.cfg, fx.pof)
	require.NoError(t, err)

	assert.Equal(t, []string{"hull", "hull_lod2", "hull_lod4", "hull_lod6", "missing-decal"}, kinds(res.Artifacts, ArtifactTexture))
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "missing-decal", res.Failed()[0].Name)

	textures := filepath.Join(fx.root, "out", "rapier", "textures")
	for _, name := range []string{"hull_lod2.webp", "hull_lod4.webp", "hull_lod6.webp"} {
		assert.FileExists(t, filepath.Join(textures, name))
		assert.Contains(t, res.Created, filepath.Join(textures, name))
	}
}

func TestTextureLevels(t *testing.T) {
	assert.Equal(t, []int{2, 4, 6}, textureLevels(lod.Generate(50)))
	assert.Empty(t, textureLevels(lod.Hierarchy{}))
}

func TestConvertBadFile(t *testing.T) {
	fx := setup(t)
	bad := filepath.Join(fx.root, "bad.pof")
	require.NoError(t, os.WriteFile(bad, []byte("not a model at all"), 0644))

	res, err := convert(t, fx.cfg, bad)
	require.ErrorIs(t, err, pof.ErrInvalidSignature)
	require.NotNil(t, res)
	assert.Empty(t, res.Scene)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestNewRejectsBadSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Collision.MaxVertices = 1000
	_, err := New(cfg, logging.Discard())
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Format = "fbx"
	_, err = New(cfg, logging.Discard())
	assert.Error(t, err)
}

func TestMeshName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "turret", meshName(&pof.SubObject{Number: 1, Name: "turret"}, used))
	assert.Equal(t, "Turret_04", meshName(&pof.SubObject{Number: 4, Name: "Turret"}, used))
	assert.Equal(t, "subobject07", meshName(&pof.SubObject{Number: 7}, used))
}
