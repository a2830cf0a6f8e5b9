// Package mesh materialises triangle meshes from reconstructed BSP trees.
package mesh

import (
	"wcs-converter/internal/bsp"
	"wcs-converter/internal/mathutil"
)

// Vertex is one corner of a triangle. Color is the flat-shading colour; textured surfaces carry white.
type Vertex struct {
	Position mathutil.Vec3
	Normal   mathutil.Vec3
	UV       [2]float32
	Color    [4]float32
}

// Surface holds the triangles that share one texture.
type Surface struct {
	Texture  uint32
	Vertices []Vertex
	Indices  []uint32
}

func (s *Surface) TriangleCount() int { return len(s.Indices) / 3 }

func (s *Surface) Textured() bool { return s.Texture != bsp.Untextured }

// Triangle returns the corner positions of triangle i.
func (s *Surface) Triangle(i int) [3]mathutil.Vec3 {
	return [3]mathutil.Vec3{
		s.Vertices[s.Indices[3*i]].Position,
		s.Vertices[s.Indices[3*i+1]].Position,
		s.Vertices[s.Indices[3*i+2]].Position,
	}
}

func (s *Surface) Clone() Surface {
	return Surface{
		Texture:  s.Texture,
		Vertices: append([]Vertex(nil), s.Vertices...),
		Indices:  append([]uint32(nil), s.Indices...),
	}
}

// Mesh is a named list of surfaces in first-use texture order.
type Mesh struct {
	Name     string
	Surfaces []Surface
}

func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Surfaces {
		n += len(m.Surfaces[i].Vertices)
	}
	return n
}

func (m *Mesh) TriangleCount() int {
	n := 0
	for i := range m.Surfaces {
		n += m.Surfaces[i].TriangleCount()
	}
	return n
}

func (m *Mesh) Empty() bool { return m.TriangleCount() == 0 }

// Positions returns every vertex position, surface by surface.
func (m *Mesh) Positions() []mathutil.Vec3 {
	out := make([]mathutil.Vec3, 0, m.VertexCount())
	for i := range m.Surfaces {
		for _, v := range m.Surfaces[i].Vertices {
			out = append(out, v.Position)
		}
	}
	return out
}

// Triangles returns the corner positions of every triangle.
func (m *Mesh) Triangles() [][3]mathutil.Vec3 {
	out := make([][3]mathutil.Vec3, 0, m.TriangleCount())
	for i := range m.Surfaces {
		s := &m.Surfaces[i]
		for t := 0; t < s.TriangleCount(); t++ {
			out = append(out, s.Triangle(t))
		}
	}
	return out
}

func (m *Mesh) Bounds() (mathutil.BoundingBox, bool) {
	return mathutil.BoxFromPoints(m.Positions())
}

func (m *Mesh) Clone() *Mesh {
	out := &Mesh{Name: m.Name, Surfaces: make([]Surface, len(m.Surfaces))}
	for i := range m.Surfaces {
		out.Surfaces[i] = m.Surfaces[i].Clone()
	}
	return out
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d mathutil.Vec3) {
	for i := range m.Surfaces {
		vs := m.Surfaces[i].Vertices
		for j := range vs {
			vs[j].Position = vs[j].Position.Add(d)
		}
	}
}

var white = [4]float32{1, 1, 1, 1}

// FromTree collects the leaf polygons of root in traversal order, front before back.
func FromTree(name string, root bsp.Node) *Mesh {
	return FromPolygons(name, bsp.Polygons(root))
}

// FromPolygons fan-triangulates polys and groups them by texture.
func FromPolygons(name string, polys []bsp.Polygon) *Mesh {
	m := &Mesh{Name: name}
	byTexture := map[uint32]int{}
	for i := range polys {
		p := &polys[i]
		if len(p.Vertices) < 3 {
			continue
		}
		si, ok := byTexture[p.TextureIndex]
		if !ok {
			si = len(m.Surfaces)
			byTexture[p.TextureIndex] = si
			m.Surfaces = append(m.Surfaces, Surface{Texture: p.TextureIndex})
		}
		appendPolygon(&m.Surfaces[si], p)
	}
	return m
}

func appendPolygon(s *Surface, p *bsp.Polygon) {
	color := white
	if !p.Textured() {
		color = [4]float32{float32(p.Color[0]) / 255, float32(p.Color[1]) / 255, float32(p.Color[2]) / 255, 1}
	}
	faceNormal := p.UnitNormal()

	base := uint32(len(s.Vertices))
	for i, pos := range p.Vertices {
		v := Vertex{Position: pos, Normal: faceNormal, Color: color}
		if i < len(p.VertexNormals) && !mathutil.IsZero(p.VertexNormals[i]) {
			v.Normal = mathutil.Normalize(p.VertexNormals[i])
		}
		if i < len(p.UVs) {
			v.UV = p.UVs[i]
		}
		s.Vertices = append(s.Vertices, v)
	}
	for i := 1; i+1 < len(p.Vertices); i++ {
		s.Indices = append(s.Indices, base, base+uint32(i), base+uint32(i+1))
	}
}
