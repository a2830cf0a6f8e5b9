// Package pipeline converts one POF file into engine artifacts: decode, validate, repair, lower
// and write. Failures of single artifacts are recorded in the result and do not stop the file.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"wcs-converter/internal/collision"
	"wcs-converter/internal/config"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/export"
	"wcs-converter/internal/intel"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/logging"
	"wcs-converter/internal/material"
	"wcs-converter/internal/mesh"
	"wcs-converter/internal/meshopt"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/scene"
	"wcs-converter/internal/shader"
	"wcs-converter/internal/texture"
	"wcs-converter/internal/validate"
)

// smallMeshTriangles is the size below which debris meshes are merged.
const smallMeshTriangles = 32

// Artifact kinds.
const (
	ArtifactMesh      = "mesh"
	ArtifactCollision = "collision"
	ArtifactShield    = "shield"
	ArtifactTexture   = "texture"
	ArtifactScene     = "scene"
)

// Artifact is one derived output of a conversion. Err is set when it could not be produced.
type Artifact struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	Err  string `json:"error,omitempty"`
}

type Result struct {
	File         string            `json:"file"`
	Scene        string            `json:"scene,omitempty"`
	Version      int32             `json:"version"`
	Validation   validate.Result   `json:"validation"`
	Artifacts    []Artifact        `json:"artifacts"`
	Optimization []meshopt.Result  `json:"optimization,omitempty"`
	Diagnostics  []diag.Diagnostic `json:"-"`
	Created      []string          `json:"created,omitempty"`
	Elapsed      time.Duration     `json:"elapsed"`
}

// Failed returns the artifacts that could not be produced.
func (r *Result) Failed() []Artifact {
	var out []Artifact
	for _, a := range r.Artifacts {
		if a.Err != "" {
			out = append(out, a)
		}
	}
	return out
}

func (r *Result) add(kind, name, path string, err error) {
	a := Artifact{Kind: kind, Name: name, Path: path}
	if err != nil {
		a.Err = err.Error()
	}
	r.Artifacts = append(r.Artifacts, a)
}

// Converter holds the state shared by all files of a run. It is safe for concurrent use.
type Converter struct {
	cfg    config.Config
	index  *texture.Index
	cache  *texture.Cache
	intel  *intel.Table
	mapper *shader.Mapper
	log    *log.Logger
}

// New validates cfg, indexes the texture directories and loads the ship tables.
func New(cfg config.Config, logger *log.Logger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := export.New(cfg.Format, ""); err != nil {
		return nil, err
	}
	mapper, err := shader.NewMapper(cfg.Shader)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	table := intel.NewTable(nil)
	if len(cfg.ShipTables) > 0 {
		if table, err = intel.LoadTable(cfg.ShipTables...); err != nil {
			return nil, err
		}
	}
	index := texture.BuildIndex(cfg.TextureDirs...)
	logger.Debug("converter ready", "textures", index.Len(), "ships", table.Len(), "target", cfg.Optimization.Target)
	return &Converter{
		cfg:    cfg,
		index:  index,
		cache:  texture.NewCache(index),
		intel:  table,
		mapper: mapper,
		log:    logger,
	}, nil
}

// Convert runs the whole pipeline on one file. The error is non-nil only when the file could
// not be decoded or the scene could not be written; the result is returned either way.
func (c *Converter) Convert(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	res := &Result{File: path}
	defer func() { res.Elapsed = time.Since(start) }()

	logger := c.log.With("file", filepath.Base(path))
	sink := diag.NewSink(diag.WithLogger(logger), diag.WithVerbose(c.cfg.Verbose))

	m, err := pof.DecodeFile(ctx, path, pof.Options{Sink: sink})
	res.Diagnostics = sink.Entries()
	if err != nil {
		return res, errors.Wrapf(err, "pipeline: decode %s", path)
	}
	res.Version = m.DeclaredVersion
	res.Validation = validate.Run(m, validate.Options{Decoded: res.Diagnostics})
	if !res.Validation.IsValid {
		logger.Warn("model has errors, converting repaired copy", "errors", len(res.Validation.Errors))
	}

	s, srcs := c.Lower(ctx, validate.Repair(m), res)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Scene = s.Name

	dir := filepath.Join(c.cfg.OutputDir, s.Name)
	if c.cfg.ExportTextures {
		c.exportTextures(srcs, s.LOD, filepath.Join(dir, "textures"), res)
	}

	root := ""
	if c.cfg.ResourceRoot != "" {
		root = strings.TrimSuffix(c.cfg.ResourceRoot, "/") + "/" + s.Name
	}
	w, err := export.New(c.cfg.Format, root)
	if err != nil {
		return res, err
	}
	created, err := w.Write(s, dir)
	res.Created = append(res.Created, created...)
	res.add(ArtifactScene, s.Name, dir, err)
	if err != nil {
		return res, errors.Wrapf(err, "pipeline: write %s", s.Name)
	}
	logger.Info("converted", "scene", s.Name, "files", len(res.Created), "failed_artifacts", len(res.Failed()))
	return res, nil
}

// Lower turns a repaired model into a scene. Per-artifact problems are recorded in res. The
// source materials are returned in texture order for texture export.
func (c *Converter) Lower(ctx context.Context, m *pof.Model, res *Result) (*scene.Scene, []material.Source) {
	srcs := make([]material.Source, len(m.Textures))
	descs := make([]material.Descriptor, len(m.Textures))
	for i, name := range m.Textures {
		srcs[i] = material.FromTexture(name, c.index)
		descs[i] = material.Convert(srcs[i])
	}

	meshes := map[int32]*mesh.Mesh{}
	names := map[string]bool{}
	for i := range m.SubObjects {
		if ctx.Err() != nil {
			break
		}
		so := &m.SubObjects[i]
		if _, dup := meshes[so.Number]; dup {
			continue
		}
		raw := mesh.FromTree(meshName(so, names), so.Tree)
		if raw.Empty() {
			continue
		}
		opt, report := meshopt.Optimize(raw, srcs, c.cfg.Optimization)
		res.Optimization = append(res.Optimization, report)
		meshes[so.Number] = opt
		res.add(ArtifactMesh, opt.Name, "", nil)
	}

	s := scene.Build(m, scene.Options{Meshes: meshes})
	s.Materials = descs
	s.Shaders = c.mapper.MapAll(srcs)
	s.LOD = c.cfg.LOD.Generate(m.Header.MaxRadius)

	c.collisions(s, res)
	if c.cfg.Collision.GenerateShieldMesh && m.Shield != nil && len(m.Shield.Vertices) > 0 {
		shape, err := collision.FromPoints("shield", m.Shield.Vertices, c.cfg.Collision.Shield())
		s.Shield = shape
		res.add(ArtifactShield, "shield", "", err)
	}
	if c.cfg.MergeDebris && c.cfg.Optimization.MergeSmallMeshes {
		mergeDebris(s)
	}
	if c.cfg.LODMeshes {
		s.LODMeshes = lodMeshes(s)
	}
	if e, ok := c.intel.Lookup(m.Filename); ok {
		s.Intel = &e
	}
	return s, srcs
}

func meshName(so *pof.SubObject, used map[string]bool) string {
	name := so.Name
	if name == "" {
		name = fmt.Sprintf("subobject%02d", so.Number)
	}
	if used[strings.ToLower(name)] {
		name = fmt.Sprintf("%s_%02d", name, so.Number)
	}
	used[strings.ToLower(name)] = true
	return name
}

// collisions gives every detail-0 subobject with a mesh a collision shape. Subsystems use the
// tighter budget when configured to.
func (c *Converter) collisions(s *scene.Scene, res *Result) {
	s.Root.Walk(func(n *scene.Node) {
		if n.Kind != scene.KindSubObject || n.Detail != 0 || n.Debris || n.Mesh == nil {
			return
		}
		settings := c.cfg.Collision
		if n.Subsystem && settings.PreserveSubsystems {
			settings = settings.Subsystem()
		}
		shape, err := collision.Generate(n.Name, n.Mesh, settings)
		n.Collision = shape
		res.add(ArtifactCollision, n.Name, "", err)
	})
}

// mergeDebris replaces the meshes of small leaf debris pieces with one combined model-space mesh
// attached to the root.
func mergeDebris(s *scene.Scene) {
	var nodes []*scene.Node
	var flat []*mesh.Mesh
	for _, n := range s.Root.Children {
		if n.Kind == scene.KindSubObject && n.Debris && n.Mesh != nil && len(n.Children) == 0 {
			nodes = append(nodes, n)
			flat = append(flat, scene.Flatten(n, n.Mesh.Name, nil))
		}
	}
	merged := meshopt.MergeSmall(flat, smallMeshTriangles, "debris_merged")
	if len(merged) == len(flat) {
		return
	}
	for i, n := range nodes {
		if flat[i].TriangleCount() < smallMeshTriangles {
			n.Mesh, n.MeshRef = nil, ""
		}
	}
	combined := merged[len(merged)-1]
	s.Root.Children = append(s.Root.Children, &scene.Node{
		Name:     combined.Name,
		Kind:     scene.KindSubObject,
		Rotation: mgl32.QuatIdent(),
		World:    mgl32.Ident4(),
		Number:   -1,
		Detail:   -1,
		Debris:   true,
		Mesh:     combined,
		MeshRef:  combined.Name,
	})
}

// lodMeshes decimates the flattened detail-0 hierarchy once per LOD level after the first.
func lodMeshes(s *scene.Scene) []*mesh.Mesh {
	root := s.DetailRoot()
	if root == nil || len(s.LOD.Levels) < 2 {
		return nil
	}
	base := scene.Flatten(root, s.Name+"_lod0", func(n *scene.Node) bool { return n.Kind != scene.KindHardpoint })
	if base.Empty() {
		return nil
	}
	out := make([]*mesh.Mesh, len(s.LOD.Levels))
	for i := 1; i < len(s.LOD.Levels); i++ {
		m := base.Decimate(s.LOD.Levels[i].TriangleReduction)
		m.Name = fmt.Sprintf("%s_lod%d", s.Name, i)
		out[i] = m
	}
	return out
}

// textureLevels returns the first level of each lower texture resolution factor.
func textureLevels(h lod.Hierarchy) []int {
	var out []int
	last := float32(1)
	for i, l := range h.Levels {
		if l.TextureResolution < last {
			out = append(out, i)
			last = l.TextureResolution
		}
	}
	return out
}

// exportTextures writes every texture the materials reference, capped by the profile. With LOD
// meshes on, each level that lowers the texture resolution also gets a <stem>_lodN variant.
func (c *Converter) exportTextures(srcs []material.Source, h lod.Hierarchy, dir string, res *Result) {
	variants := textureLevels(h)
	if !c.cfg.LODMeshes {
		variants = nil
	}
	maxSize := c.cfg.Optimization.MaxTextureResolution
	seen := map[string]bool{}
	for i := range srcs {
		src := &srcs[i]
		for _, name := range []string{src.DiffuseTexture, src.GlowTexture, src.SpecularTexture, src.NormalTexture} {
			stem := texture.Stem(name)
			if stem == "" || seen[stem] {
				continue
			}
			seen[stem] = true
			path, err := texture.Export(c.cache, stem, dir, maxSize)
			res.add(ArtifactTexture, stem, path, err)
			if err != nil {
				continue
			}
			res.Created = append(res.Created, path)
			for _, i := range variants {
				name := fmt.Sprintf("%s_lod%d", stem, i)
				path, err := texture.ExportScaled(c.cache, stem, dir, name, maxSize, h.Levels[i].TextureResolution)
				res.add(ArtifactTexture, name, path, err)
				if err == nil {
					res.Created = append(res.Created, path)
				}
			}
		}
	}
}
