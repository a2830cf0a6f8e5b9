package export

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/collision"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/material"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/scene"
	"wcs-converter/internal/shader"
)

const untexturedName = "untextured"

// Godot writes a text scene (.tscn) with OBJ meshes and .tres materials.
type Godot struct {
	// ResourceRoot is the res:// path the output directory is mounted at.
	ResourceRoot string
	// ShaderRoot holds the custom shader templates; default res://shaders.
	ShaderRoot string
}

type godotRun struct {
	w       *Godot
	s       *scene.Scene
	dir     string
	root    string
	created []string
	meshes  map[string]string
	mats    map[uint32]string
}

func (g *Godot) Write(s *scene.Scene, dir string) ([]string, error) {
	r := &godotRun{w: g, s: s, dir: dir, root: strings.TrimSuffix(g.ResourceRoot, "/"), mats: map[uint32]string{}}
	if r.root == "" {
		r.root = "res://" + sanitize(s.Name)
	}

	if err := r.materials(); err != nil {
		return r.created, err
	}
	created, meshes, err := writeMeshes(s, dir, r.surfaceName)
	r.created = append(r.created, created...)
	if err != nil {
		return r.created, err
	}
	r.meshes = meshes
	if s.Intel != nil {
		if err := r.intel(); err != nil {
			return r.created, err
		}
	}
	return r.created, r.scene()
}

func (r *godotRun) res(rel string) string {
	return r.root + "/" + strings.ReplaceAll(rel, "\\", "/")
}

func (r *godotRun) write(rel string, data []byte) error {
	p, err := writeFile(r.dir, rel, data)
	if err != nil {
		return err
	}
	r.created = append(r.created, p)
	return nil
}

func (r *godotRun) surfaceName(texture uint32) string {
	if int64(texture) < int64(len(r.s.Materials)) {
		return sanitize(r.s.Materials[texture].Name)
	}
	return untexturedName
}

func materialFile(name string) string { return path.Join("materials", sanitize(name)+".tres") }

func textureRes(root, stem string) string { return root + "/textures/" + sanitize(stem) + ".webp" }

// materials writes one .tres per descriptor plus the vertex-colour material for flat polygons.
func (r *godotRun) materials() error {
	for i, d := range r.s.Materials {
		var mapping *shader.Mapping
		if i < len(r.s.Shaders) {
			mapping = &r.s.Shaders[i]
		}
		rel := materialFile(d.Name)
		var data []byte
		if mapping != nil && !mapping.Standard() {
			data = r.shaderMaterial(rel, d, mapping)
		} else {
			data = r.standardMaterial(rel, d)
		}
		if err := r.write(rel, data); err != nil {
			return err
		}
		r.mats[uint32(i)] = rel
	}

	rel := materialFile(sanitize(r.s.Name) + "_" + untexturedName)
	doc := newDocument(`gd_resource type="StandardMaterial3D"`, r.res(rel))
	doc.section("resource",
		prop("resource_name", quote(untexturedName)),
		prop("vertex_color_use_as_albedo", "true"),
		prop("roughness", "1"),
	)
	if err := r.write(rel, doc.bytes()); err != nil {
		return err
	}
	r.mats[bsp.Untextured] = rel
	return nil
}

var (
	transparencyEnum = map[material.TransparencyMode]int{material.Opaque: 0, material.AlphaBlend: 1, material.AlphaScissor: 2}
	blendEnum        = map[material.BlendMode]int{material.BlendMix: 0, material.BlendAdd: 1, material.BlendSub: 2, material.BlendMul: 3}
	shadingEnum      = map[material.ShadingMode]int{material.ShadingUnshaded: 0, material.ShadingPerPixel: 1, material.ShadingPerVertex: 2}
	specularEnum     = map[material.SpecularMode]int{material.SpecularSchlickGGX: 0, material.SpecularToon: 1, material.SpecularDisabled: 2}
	filterEnum       = map[material.TextureFilter]int{
		material.FilterNearest:           0,
		material.FilterLinear:            1,
		material.FilterLinearMipmap:      3,
		material.FilterLinearMipmapAniso: 5,
	}
)

func (r *godotRun) standardMaterial(rel string, d material.Descriptor) []byte {
	doc := newDocument(`gd_resource type="StandardMaterial3D"`, r.res(rel))
	props := []string{
		prop("resource_name", quote(d.Name)),
		prop("transparency", itoa(transparencyEnum[d.TransparencyMode])),
		prop("blend_mode", itoa(blendEnum[d.BlendMode])),
		prop("shading_mode", itoa(shadingEnum[d.ShadingMode])),
		prop("specular_mode", itoa(specularEnum[d.SpecularMode])),
		prop("albedo_color", color(d.AlbedoColor)),
	}
	if d.AlbedoTexture != "" {
		props = append(props, prop("albedo_texture", doc.external("Texture2D", textureRes(r.root, d.AlbedoTexture))))
	}
	props = append(props, prop("metallic", num(d.Metallic)))
	if d.MetallicTexture != "" {
		props = append(props, prop("metallic_texture", doc.external("Texture2D", textureRes(r.root, d.MetallicTexture))))
	}
	props = append(props, prop("roughness", num(d.Roughness)))
	if d.EmissionEnabled {
		e := d.Emission
		props = append(props,
			prop("emission_enabled", "true"),
			prop("emission", color([4]float32{e[0], e[1], e[2], 1})),
			prop("emission_energy_multiplier", num(d.EmissionEnergy)),
		)
		if d.EmissionTexture != "" {
			props = append(props, prop("emission_texture", doc.external("Texture2D", textureRes(r.root, d.EmissionTexture))))
		}
	}
	if d.NormalEnabled {
		props = append(props,
			prop("normal_enabled", "true"),
			prop("normal_texture", doc.external("Texture2D", textureRes(r.root, d.NormalTexture))),
		)
	}
	props = append(props,
		prop("texture_filter", itoa(filterEnum[d.TextureFilter])),
		prop("metadata/render_mode", quote(d.RenderMode.String())),
	)
	if d.Animated {
		props = append(props, prop("metadata/frame_count", itoa(d.FrameCount)))
	}
	doc.section("resource", props...)
	return doc.bytes()
}

func (r *godotRun) shaderMaterial(rel string, d material.Descriptor, m *shader.Mapping) []byte {
	doc := newDocument(`gd_resource type="ShaderMaterial"`, r.res(rel))
	shaderRoot := strings.TrimSuffix(r.w.ShaderRoot, "/")
	if shaderRoot == "" {
		shaderRoot = "res://shaders"
	}
	props := []string{
		prop("resource_name", quote(d.Name)),
		prop("render_priority", "0"),
		prop("shader", doc.external("Shader", shaderRoot+"/"+m.Template+".gdshader")),
		prop("shader_parameter/albedo_color", color(d.AlbedoColor)),
	}
	for _, slot := range []string{"albedo", "emission", "specular", "normal"} {
		if stem, ok := m.Textures[slot]; ok {
			props = append(props, prop("shader_parameter/"+slot+"_texture", doc.external("Texture2D", textureRes(r.root, stem))))
		}
	}
	for _, k := range sortedKeys(m.Parameters) {
		props = append(props, prop("shader_parameter/"+k, num(m.Parameters[k])))
	}
	props = append(props,
		prop("metadata/effect", quote(m.Effect.String())),
		prop("metadata/render_mode", quote(d.RenderMode.String())),
	)
	doc.section("resource", props...)
	return doc.bytes()
}

func (r *godotRun) intel() error {
	e := r.s.Intel
	rel := path.Join("intel", sanitize(r.s.Name)+"_intel.tres")
	doc := newDocument(`gd_resource type="Resource"`, r.res(rel))
	fields := map[string]string{
		"name":         e.Name,
		"short_name":   e.ShortName,
		"pof_file":     e.POFFile,
		"species":      e.Species,
		"manufacturer": e.Manufacturer,
		"class_type":   e.ClassType,
		"type":         e.Type,
		"length":       e.Length,
		"description":  e.Description,
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	for k, v := range e.Fields {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	doc.section("resource", metadata(fields)...)
	return r.write(rel, doc.bytes())
}

func (r *godotRun) scene() error {
	rel := sanitize(r.s.Name) + ".tscn"
	doc := newDocument("gd_scene", r.res(rel))

	rootProps := []string{}
	if lv := r.s.LOD.Levels; len(lv) > 0 {
		rootProps = append(rootProps, lodMetadata(lv)...)
	}
	var lodMeshes []string
	for _, m := range r.s.LODMeshes {
		if m == nil {
			continue
		}
		if f, ok := r.meshes[m.Name]; ok {
			lodMeshes = append(lodMeshes, quote(r.res(f)))
		}
	}
	if len(lodMeshes) > 0 {
		rootProps = append(rootProps, prop("metadata/lod_meshes", "PackedStringArray("+strings.Join(lodMeshes, ", ")+")"))
	}
	doc.section(fmt.Sprintf("node name=%q type=\"Node3D\"", sanitize(r.s.Root.Name)), rootProps...)

	used := map[string]bool{}
	for _, c := range r.s.Root.Children {
		r.node(doc, c, ".", used)
	}
	if r.s.Shield != nil {
		r.collision(doc, r.s.Shield, scene.UniqueName(used, "shield"), ".", "Area3D")
	}
	return r.write(rel, doc.bytes())
}

func lodMetadata(levels []lod.Level) []string {
	var dist, verts, tris, tex []float32
	for _, l := range levels {
		dist = append(dist, l.DistanceThreshold)
		verts = append(verts, l.VertexReduction)
		tris = append(tris, l.TriangleReduction)
		tex = append(tex, l.TextureResolution)
	}
	return []string{
		prop("metadata/lod_distances", floats(dist)),
		prop("metadata/lod_vertex_reduction", floats(verts)),
		prop("metadata/lod_triangle_reduction", floats(tris)),
		prop("metadata/lod_texture_resolution", floats(tex)),
	}
}

func childPath(parent, name string) string {
	if parent == "." {
		return name
	}
	return parent + "/" + name
}

// node writes n and its subtree. used holds the names already taken among n's siblings, compared
// after sanitising.
func (r *godotRun) node(doc *document, n *scene.Node, parent string, used map[string]bool) {
	name := scene.UniqueName(used, sanitize(n.Name))
	kind := "Node3D"
	var props []string
	switch n.Kind {
	case scene.KindHardpoint:
		kind = "Marker3D"
	case scene.KindSubObject:
		if f, ok := r.meshes[n.MeshRef]; ok && n.MeshRef != "" {
			kind = "MeshInstance3D"
			props = append(props, prop("mesh", doc.external("ArrayMesh", r.res(f))))
			for i := range n.Mesh.Surfaces {
				if rel, ok := r.mats[n.Mesh.Surfaces[i].Texture]; ok {
					props = append(props, prop(fmt.Sprintf("surface_material_override/%d", i), doc.external("Material", r.res(rel))))
				}
			}
		}
	}
	props = append([]string{prop("transform", transform(n.Offset, n.Rotation))}, props...)

	switch n.Kind {
	case scene.KindSubObject:
		props = append(props,
			prop("metadata/subobject", itoa(int(n.Number))),
			prop("metadata/detail_level", itoa(n.Detail)),
			prop("metadata/movement", quote(n.Movement)),
			prop("metadata/movement_axis", quote(n.Axis)),
		)
		if n.Subsystem {
			props = append(props, prop("metadata/subsystem", "true"))
		}
		if n.Debris {
			props = append(props, prop("metadata/debris", "true"))
		}
	case scene.KindHardpoint:
		props = append(props,
			prop("metadata/point_kind", quote(n.PointKind)),
			prop("metadata/normal", vector3(toEngine(n.Normal))),
		)
	}
	props = append(props, metadata(n.Properties)...)
	doc.section(fmt.Sprintf("node name=%q type=%q parent=%q", name, kind, parent), props...)

	self := childPath(parent, name)
	children := map[string]bool{}
	if n.Collision != nil {
		r.collision(doc, n.Collision, scene.UniqueName(children, name+"_collision"), self, "StaticBody3D")
	}
	for _, c := range n.Children {
		r.node(doc, c, self, children)
	}
}

// collision adds a body node with one CollisionShape3D per shape part.
func (r *godotRun) collision(doc *document, s *collision.Shape, name, parent, body string) {
	doc.section(fmt.Sprintf("node name=%q type=%q parent=%q", sanitize(name), body, parent),
		prop("metadata/shape_kind", quote(s.Kind.String())),
		prop("metadata/data_loss_expected", fmt.Sprint(s.DataLoss)),
	)
	self := childPath(parent, sanitize(name))
	shape := func(i int, res string, offset mathutil.Vec3, rot mgl32.Quat) {
		doc.section(fmt.Sprintf("node name=\"CollisionShape3D_%d\" type=\"CollisionShape3D\" parent=%q", i, self),
			prop("transform", transform(offset, rot)),
			prop("shape", res),
		)
	}
	ident := mgl32.QuatIdent()
	switch s.Kind {
	case collision.Sphere:
		shape(0, doc.subresource("SphereShape3D", prop("radius", num(s.Radius))), s.Center, ident)
	case collision.Box:
		shape(0, doc.subresource("BoxShape3D", prop("size", vector3(s.BBox.Size()))), s.BBox.Center(), ident)
	case collision.Capsule:
		res := doc.subresource("CapsuleShape3D", prop("radius", num(s.Radius)), prop("height", num(s.Height)))
		shape(0, res, s.Center, capsuleRotation(s.Axis))
	case collision.ConvexHull, collision.ConvexDecomposition:
		for i, h := range s.Hulls {
			shape(i, doc.subresource("ConvexPolygonShape3D", prop("points", vectors(h.Vertices))), mathutil.Vec3{}, ident)
		}
	case collision.TriangleMesh:
		if s.Mesh != nil {
			var faces []mathutil.Vec3
			for t := 0; t+2 < len(s.Mesh.Indices); t += 3 {
				idx := s.Mesh.Indices
				faces = append(faces, s.Mesh.Vertices[idx[t]], s.Mesh.Vertices[idx[t+2]], s.Mesh.Vertices[idx[t+1]])
			}
			shape(0, doc.subresource("ConcavePolygonShape3D", prop("data", vectors(faces))), mathutil.Vec3{}, ident)
		}
	}
}

// capsuleRotation turns the engine's Y-aligned capsule onto the given source axis.
func capsuleRotation(axis int) mgl32.Quat {
	switch axis {
	case 0:
		return mgl32.QuatRotate(-mgl32.DegToRad(90), mathutil.Vec3{0, 0, 1})
	case 2:
		return mgl32.QuatRotate(mgl32.DegToRad(90), mathutil.Vec3{1, 0, 0})
	}
	return mgl32.QuatIdent()
}
