package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/collision"
	"wcs-converter/internal/intel"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/material"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/pof/poftest"
	"wcs-converter/internal/scene"
	"wcs-converter/internal/shader"
	"wcs-converter/internal/validate"
)

type vec = mathutil.Vec3

func quad(name string) *mesh.Mesh {
	n := vec{0, 0, 1}
	return &mesh.Mesh{Name: name, Surfaces: []mesh.Surface{
		{
			Texture: 0,
			Vertices: []mesh.Vertex{
				{Position: vec{0, 0, 0}, Normal: n, UV: [2]float32{0, 0}},
				{Position: vec{1, 0, 0}, Normal: n, UV: [2]float32{1, 0}},
				{Position: vec{0, 1, 0}, Normal: n, UV: [2]float32{0, 1}},
			},
			Indices: []uint32{0, 1, 2},
		},
		{
			Texture: bsp.Untextured,
			Vertices: []mesh.Vertex{
				{Position: vec{1, 0, 0}, Normal: n},
				{Position: vec{1, 1, 0}, Normal: n},
				{Position: vec{0, 1, 0}, Normal: n},
			},
			Indices: []uint32{0, 1, 2},
		},
	}}
}

func testScene(t *testing.T) *scene.Scene {
	hull := quad("detail0")
	root := &scene.Node{Name: "rapier", Kind: scene.KindModel, Number: -1, Rotation: mgl32.QuatIdent()}
	detail := &scene.Node{
		Name: "detail0", Kind: scene.KindSubObject, Offset: vec{1, 2, 3}, Rotation: mgl32.QuatIdent(),
		Mesh: hull, MeshRef: "detail0", Movement: "none", Axis: "none",
		Collision: &collision.Shape{Kind: collision.Capsule, Radius: 1, Height: 4, Axis: 2},
	}
	gun := &scene.Node{Name: "gun_points", Kind: scene.KindGroup, Rotation: mgl32.QuatIdent(), Children: []*scene.Node{{
		Name: "gun_bank00_point00", Kind: scene.KindHardpoint, PointKind: "gun",
		Offset: vec{0, 0, 5}, Normal: vec{0, 0, 1}, Rotation: mgl32.QuatIdent(),
	}}}
	root.Children = []*scene.Node{detail, gun}

	glow := material.DefaultSource("engine-glow")
	glow.DiffuseTexture = "engine-glow"
	glow.RenderMode = material.Glow
	plain := material.DefaultSource("hull01")
	plain.DiffuseTexture = "hull01"
	mapper, err := shader.NewMapper(shader.DefaultConfiguration())
	require.NoError(t, err)

	s := &scene.Scene{
		Name:      "rapier",
		Root:      root,
		LOD:       lod.Generate(12),
		Materials: []material.Descriptor{material.Convert(plain), material.Convert(glow)},
		Shaders:   []shader.Mapping{mapper.Map(plain), mapper.Map(glow)},
		Shield:    &collision.Shape{Kind: collision.Sphere, Radius: 20},
		Intel:     &intel.Entry{Name: "Rapier", POFFile: "rapier.pof", Manufacturer: "Confed"},
	}
	lod1 := quad("detail0_lod1")
	s.LODMeshes = []*mesh.Mesh{nil, lod1}
	return s
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestNew(t *testing.T) {
	w, err := New("GODOT", "res://ships")
	require.NoError(t, err)
	assert.Equal(t, "res://ships", w.(*Godot).ResourceRoot)

	w, err = New("json", "")
	require.NoError(t, err)
	assert.IsType(t, &JSON{}, w)

	_, err = New("fbx", "")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestToEngine(t *testing.T) {
	assert.Equal(t, vec{-1, 2, 3}, toEngine(vec{1, 2, 3}))

	q := mgl32.QuatRotate(0.5, vec{0, 1, 0})
	p := vec{1, 0, 0}
	want := toEngine(q.Rotate(p))
	got := quatToEngine(q).Rotate(toEngine(p))
	assert.InDelta(t, want[0], got[0], 1e-5)
	assert.InDelta(t, want[1], got[1], 1e-5)
	assert.InDelta(t, want[2], got[2], 1e-5)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "gun_bank00_point00", sanitize("gun bank00.point00"))
	assert.Equal(t, "unnamed", sanitize(""))
}

func TestOBJ(t *testing.T) {
	out := string(OBJ(quad("hull"), func(tex uint32) string {
		if tex == bsp.Untextured {
			return "flat"
		}
		return "hull01"
	}))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "o hull", lines[1])
	assert.Contains(t, lines, "v -1 0 0")
	assert.Contains(t, lines, "vt 0 0")
	assert.Contains(t, lines, "vn 0 0 1")
	assert.Contains(t, lines, "usemtl hull01")
	assert.Contains(t, lines, "usemtl flat")
	// Winding is reversed and the second surface is rebased after the first.
	assert.Contains(t, lines, "f 1/1/1 3/3/3 2/2/2")
	assert.Contains(t, lines, "f 4/4/4 6/6/6 5/5/5")
}

func TestUID(t *testing.T) {
	a := UID("res://ships/rapier.tscn")
	assert.True(t, strings.HasPrefix(a, "uid://"))
	assert.Equal(t, a, UID("res://ships/rapier.tscn"))
	assert.NotEqual(t, a, UID("res://ships/hornet.tscn"))
	assert.Equal(t, resourceID(1, "x"), resourceID(1, "x"))
}

func TestTransform(t *testing.T) {
	assert.Equal(t, "Transform3D(1, 0, 0, 0, 1, 0, 0, 0, 1, -1, 2, 3)", transform(vec{1, 2, 3}, mgl32.QuatIdent()))
}

func TestGodotWrite(t *testing.T) {
	dir := t.TempDir()
	created, err := (&Godot{ResourceRoot: "res://ships/"}).Write(testScene(t), dir)
	require.NoError(t, err)

	for _, rel := range []string{
		"rapier.tscn",
		"materials/hull01.tres",
		"materials/engine-glow.tres",
		"materials/rapier_untextured.tres",
		"meshes/rapier_detail0.obj",
		"meshes/rapier_detail0_lod1.obj",
		"intel/rapier_intel.tres",
	} {
		assert.Contains(t, created, filepath.Join(dir, rel))
		assert.FileExists(t, filepath.Join(dir, rel))
	}

	tscn := read(t, filepath.Join(dir, "rapier.tscn"))
	assert.True(t, strings.HasPrefix(tscn, "[gd_scene load_steps="))
	assert.Contains(t, tscn, `[node name="rapier" type="Node3D"]`)
	assert.Contains(t, tscn, `[node name="detail0" type="MeshInstance3D" parent="."]`)
	assert.Contains(t, tscn, `path="res://ships/meshes/rapier_detail0.obj"`)
	assert.Contains(t, tscn, "surface_material_override/0 = ExtResource(")
	assert.Contains(t, tscn, "surface_material_override/1 = ExtResource(")
	assert.Contains(t, tscn, `[node name="gun_bank00_point00" type="Marker3D" parent="gun_points"]`)
	assert.Contains(t, tscn, `metadata/point_kind = "gun"`)
	assert.Contains(t, tscn, `[node name="detail0_collision" type="StaticBody3D" parent="detail0"]`)
	assert.Contains(t, tscn, `[sub_resource type="CapsuleShape3D" id="CapsuleShape3D_1"]`)
	assert.Contains(t, tscn, `[sub_resource type="SphereShape3D" id="SphereShape3D_2"]`)
	assert.Contains(t, tscn, `[node name="shield" type="Area3D" parent="."]`)
	assert.Contains(t, tscn, "metadata/lod_distances = PackedFloat32Array(")
	assert.Contains(t, tscn, `metadata/lod_meshes = PackedStringArray("res://ships/meshes/rapier_detail0_lod1.obj")`)

	plain := read(t, filepath.Join(dir, "materials", "hull01.tres"))
	assert.Contains(t, plain, `type="StandardMaterial3D"`)
	assert.Contains(t, plain, `path="res://ships/textures/hull01.webp"`)

	glow := read(t, filepath.Join(dir, "materials", "engine-glow.tres"))
	assert.Contains(t, glow, `type="ShaderMaterial"`)
	assert.Contains(t, glow, `path="res://shaders/wcs_engine_glow.gdshader"`)
	assert.Contains(t, glow, `path="res://ships/textures/engine-glow.webp"`)
	assert.Contains(t, glow, "shader_parameter/albedo_texture = ExtResource(")

	flat := read(t, filepath.Join(dir, "materials", "rapier_untextured.tres"))
	assert.Contains(t, flat, "vertex_color_use_as_albedo = true")

	info := read(t, filepath.Join(dir, "intel", "rapier_intel.tres"))
	assert.Contains(t, info, `metadata/manufacturer = "Confed"`)
	assert.Contains(t, info, `metadata/pof_file = "rapier.pof"`)
}

// childNames lists the node names declared under parent in a .tscn document.
func childNames(tscn, parent string) []string {
	var out []string
	for _, line := range strings.Split(tscn, "\n") {
		if !strings.HasPrefix(line, "[node ") || !strings.Contains(line, `parent="`+parent+`"`) {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(line, `[node name="`), `"`)
		out = append(out, name)
	}
	return out
}

func TestGodotWriteDockBays(t *testing.T) {
	points := []poftest.Point{{Position: vec{0, 0, -5}, Normal: vec{0, 0, -1}}, {Position: vec{0, 1, -5}, Normal: vec{0, 0, -1}}}
	f := poftest.New(2117)
	f.Chunk("DOCK", poftest.DocksPayload(
		poftest.Dock{Properties: "$name=Bay Alpha", Points: points},
		poftest.Dock{Properties: "$parent_submodel=detail0", Points: points},
	))
	m, err := pof.Decode(context.Background(), f.Bytes(), pof.Options{Filename: "bays.pof"})
	require.NoError(t, err)

	s := scene.Build(validate.Repair(m), scene.Options{})
	dir := t.TempDir()
	_, err = (&Godot{}).Write(s, dir)
	require.NoError(t, err)

	tscn := read(t, filepath.Join(dir, "bays.tscn"))
	assert.Equal(t,
		[]string{"Bay_Alpha_point00", "Bay_Alpha_point01", "dock01_point00", "dock01_point01"},
		childNames(tscn, "dock_points"))
}

func TestGodotWriteUniqueSiblings(t *testing.T) {
	s := testScene(t)
	twin := &scene.Node{Name: "gun bank", Kind: scene.KindGroup, Rotation: mgl32.QuatIdent()}
	other := &scene.Node{Name: "gun_bank", Kind: scene.KindGroup, Rotation: mgl32.QuatIdent()}
	s.Root.Children = append(s.Root.Children, twin, other, &scene.Node{Name: "shield", Kind: scene.KindGroup, Rotation: mgl32.QuatIdent()})

	dir := t.TempDir()
	_, err := (&Godot{}).Write(s, dir)
	require.NoError(t, err)

	tscn := read(t, filepath.Join(dir, "rapier.tscn"))
	assert.Equal(t,
		[]string{"detail0", "gun_points", "gun_bank", "gun_bank_01", "shield", "shield_01"},
		childNames(tscn, "."))
}

func TestJSONWrite(t *testing.T) {
	dir := t.TempDir()
	created, err := JSON{}.Write(testScene(t), dir)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "rapier.json"))
	assert.Len(t, created, 3)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(read(t, filepath.Join(dir, "rapier.json"))), &got))
	assert.Equal(t, "rapier", got["name"])
	assert.Equal(t, "json", got["format"])
	meshes := got["meshes"].(map[string]any)
	assert.Equal(t, "meshes/rapier_detail0.obj", meshes["detail0"])
	assert.Contains(t, got, "root")
	assert.Contains(t, got, "shield")
}
