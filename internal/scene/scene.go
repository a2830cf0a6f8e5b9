// Package scene lowers a validated POF model into an engine scene tree.
package scene

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"wcs-converter/internal/collision"
	"wcs-converter/internal/intel"
	"wcs-converter/internal/lod"
	"wcs-converter/internal/material"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/shader"
)

type Kind string

const (
	KindModel     Kind = "model"
	KindSubObject Kind = "subobject"
	KindGroup     Kind = "group"
	KindHardpoint Kind = "hardpoint"
)

// Node is one element of the scene tree. Offset and Rotation are relative to the parent.
type Node struct {
	Name     string        `json:"name"`
	Kind     Kind          `json:"kind"`
	Offset   mathutil.Vec3 `json:"offset"`
	Rotation mgl32.Quat    `json:"rotation"`
	World    mgl32.Mat4    `json:"-"`

	// Subobject fields. Number is -1 on other kinds.
	Number     int32                `json:"number"`
	Radius     float32              `json:"radius,omitempty"`
	BBox       mathutil.BoundingBox `json:"bbox"`
	Movement   string               `json:"movement,omitempty"`
	Axis       string               `json:"axis,omitempty"`
	Subsystem  bool                 `json:"subsystem,omitempty"`
	Detail     int                  `json:"detail"`
	Debris     bool                 `json:"debris,omitempty"`
	Properties map[string]string    `json:"properties,omitempty"`
	Mesh       *mesh.Mesh           `json:"-"`
	MeshRef    string               `json:"mesh,omitempty"`
	Collision  *collision.Shape     `json:"collision,omitempty"`

	// Hardpoint fields.
	PointKind string        `json:"point_kind,omitempty"`
	Normal    mathutil.Vec3 `json:"normal"`

	Children []*Node `json:"children,omitempty"`
}

// Transform is the node's local transform.
func (n *Node) Transform() mgl32.Mat4 {
	return mgl32.Translate3D(n.Offset.X(), n.Offset.Y(), n.Offset.Z()).Mul4(n.Rotation.Mat4())
}

// Walk visits n and its descendants depth first, parents before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node with the given name.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// Scene is the lowered model plus the metadata resources emitted next to it.
type Scene struct {
	Name      string                `json:"name"`
	Root      *Node                 `json:"root"`
	LOD       lod.Hierarchy         `json:"lod"`
	Materials []material.Descriptor `json:"materials,omitempty"`
	Shaders   []shader.Mapping      `json:"shaders,omitempty"`
	Shield    *collision.Shape      `json:"shield,omitempty"`
	Paths     []pof.Path            `json:"paths,omitempty"`
	Intel     *intel.Entry          `json:"intel,omitempty"`
	// LODMeshes holds the reduced detail-0 mesh of each LOD level; index 0 is unused.
	LODMeshes []*mesh.Mesh `json:"-"`
}

// Options carries the per-subobject artifacts lowered beforehand, keyed by subobject number.
type Options struct {
	Name   string
	Meshes map[int32]*mesh.Mesh
	Shapes map[int32]*collision.Shape
}

// ModelName is the scene name derived from a POF path.
func ModelName(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

func identity() mgl32.Quat { return mgl32.QuatIdent() }

// Build mirrors the subobject forest of m under a model root and adds hardpoint nodes.
// Subobjects with a missing or cyclic parent chain are attached to the root.
func Build(m *pof.Model, opts Options) *Scene {
	name := opts.Name
	if name == "" {
		name = ModelName(m.Filename)
	}
	root := &Node{Name: name, Kind: KindModel, Number: -1, Detail: -1, Rotation: identity()}
	if m.HasHeader {
		root.BBox = m.Header.BBox
		root.Radius = m.Header.MaxRadius
	}

	detail := map[int32]int{}
	for i, n := range m.Header.DetailLevels {
		if n >= 0 {
			if _, ok := detail[n]; !ok {
				detail[n] = i
			}
		}
	}
	debris := map[int32]bool{}
	for _, n := range m.Header.Debris {
		if n >= 0 {
			debris[n] = true
		}
	}

	nodes := make(map[int32]*Node, len(m.SubObjects))
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		if _, dup := nodes[so.Number]; dup {
			continue
		}
		n := subObjectNode(so, opts)
		n.Debris = debris[so.Number]
		if d, ok := detail[so.Number]; ok {
			n.Detail = d
		}
		nodes[so.Number] = n
	}
	placed := make(map[*Node]bool, len(nodes))
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		n := nodes[so.Number]
		if placed[n] {
			continue
		}
		placed[n] = true
		parent, ok := nodes[so.Parent]
		if !ok || so.Parent == so.Number || inCycle(m, so) {
			parent = root
		}
		parent.Children = append(parent.Children, n)
	}
	// Detail and debris flags are inherited by descendants.
	for _, c := range root.Children {
		d, deb := c.Detail, c.Debris
		c.Walk(func(n *Node) {
			if n.Kind == KindSubObject {
				if n.Detail < 0 {
					n.Detail = d
				}
				n.Debris = n.Debris || deb
			}
		})
	}

	addHardpoints(root, m, nodes)
	uniqueNames(root)
	updateWorld(root, mgl32.Ident4())

	return &Scene{Name: name, Root: root, Paths: m.Paths}
}

func inCycle(m *pof.Model, so *pof.SubObject) bool {
	seen := map[int32]bool{so.Number: true}
	cur := so.Parent
	for steps := 0; steps <= len(m.SubObjects); steps++ {
		if cur == -1 {
			return false
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		p, ok := m.SubObjectByNumber(cur)
		if !ok {
			return false
		}
		cur = p.Parent
	}
	return true
}

func subObjectNode(so *pof.SubObject, opts Options) *Node {
	props := pof.ParseProperties(so.Properties)
	n := &Node{
		Name:       so.Name,
		Kind:       KindSubObject,
		Offset:     so.Offset,
		Rotation:   identity(),
		Number:     so.Number,
		Radius:     so.Radius,
		BBox:       so.BBox,
		Movement:   so.Movement.String(),
		Axis:       so.Axis.String(),
		Subsystem:  strings.EqualFold(props["special"], "subsystem"),
		Detail:     -1,
		Properties: props,
		Mesh:       opts.Meshes[so.Number],
		Collision:  opts.Shapes[so.Number],
	}
	if n.Name == "" {
		n.Name = fmt.Sprintf("subobject%02d", so.Number)
	}
	if len(props) == 0 {
		n.Properties = nil
	}
	if n.Mesh != nil && !n.Mesh.Empty() {
		n.MeshRef = n.Mesh.Name
	}
	return n
}

// uniqueNames suffixes repeated sibling names with "_NN" so every child path is unambiguous.
func uniqueNames(n *Node) {
	used := make(map[string]bool, len(n.Children))
	for _, c := range n.Children {
		c.Name = UniqueName(used, c.Name)
		uniqueNames(c)
	}
}

// UniqueName returns name, or name with the lowest free "_NN" suffix, and marks the result used.
func UniqueName(used map[string]bool, name string) string {
	out := name
	for i := 1; used[out]; i++ {
		out = fmt.Sprintf("%s_%02d", name, i)
	}
	used[out] = true
	return out
}

func updateWorld(n *Node, parent mgl32.Mat4) {
	n.World = parent.Mul4(n.Transform())
	for _, c := range n.Children {
		updateWorld(c, n.World)
	}
}

// WorldOffsets accumulates subobject offsets along each parent chain. A broken or cyclic chain
// stops at the subobject where it breaks.
func WorldOffsets(m *pof.Model) map[int32]mathutil.Vec3 {
	out := make(map[int32]mathutil.Vec3, len(m.SubObjects))
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		off := so.Offset
		seen := map[int32]bool{so.Number: true}
		for cur := so.Parent; cur != -1 && !seen[cur]; {
			seen[cur] = true
			p, ok := m.SubObjectByNumber(cur)
			if !ok {
				break
			}
			off = off.Add(p.Offset)
			cur = p.Parent
		}
		if _, dup := out[so.Number]; !dup {
			out[so.Number] = off
		}
	}
	return out
}
