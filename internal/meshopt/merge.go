package meshopt

import (
	"github.com/chewxy/math32"

	"wcs-converter/internal/material"
	"wcs-converter/internal/mesh"
)

// colorTolerance is the largest per-channel diffuse difference of materials that merge.
const colorTolerance = 0.05

// Materials resolves the source material of a surface texture index.
type Materials []material.Source

func (ms Materials) At(texture uint32) material.Source {
	if int64(texture) < int64(len(ms)) {
		return ms[texture]
	}
	return material.DefaultSource("untextured")
}

// similar materials can share one surface without visible change.
func similar(a, b material.Source) bool {
	return a.DiffuseTexture == b.DiffuseTexture && a.RenderMode == b.RenderMode &&
		a.Transparency == b.Transparency && colorDistance(a.DiffuseColor, b.DiffuseColor) <= colorTolerance
}

func colorDistance(a, b [3]float32) float32 {
	d := float32(0)
	for i := range a {
		d = math32.Max(d, math32.Abs(a[i]-b[i]))
	}
	return d
}

// mismatch scores how far apart two materials are for cap-driven merging.
func mismatch(a, b material.Source) float32 {
	d := colorDistance(a.DiffuseColor, b.DiffuseColor) + math32.Abs(a.Transparency-b.Transparency)
	if a.RenderMode != b.RenderMode {
		d += 2
	}
	if a.DiffuseTexture != b.DiffuseTexture {
		d++
	}
	return d
}

func appendSurface(dst *mesh.Surface, src *mesh.Surface) {
	base := uint32(len(dst.Vertices))
	dst.Vertices = append(dst.Vertices, src.Vertices...)
	for _, i := range src.Indices {
		dst.Indices = append(dst.Indices, i+base)
	}
}

// MergeMaterials folds surfaces with similar materials into the first of them. It returns the
// number of surfaces removed.
func MergeMaterials(m *mesh.Mesh, mats Materials) int {
	var out []mesh.Surface
	for i := range m.Surfaces {
		s := m.Surfaces[i]
		merged := false
		for j := range out {
			if similar(mats.At(out[j].Texture), mats.At(s.Texture)) {
				appendSurface(&out[j], &s)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, s.Clone())
		}
	}
	removed := len(m.Surfaces) - len(out)
	m.Surfaces = out
	return removed
}

// CapMaterials merges the smallest surface into its closest match until at most limit remain.
// The merged triangles take the target's material. It returns the number of surfaces removed.
func CapMaterials(m *mesh.Mesh, mats Materials, limit int) int {
	removed := 0
	for limit > 0 && len(m.Surfaces) > limit {
		small := 0
		for i := range m.Surfaces {
			if m.Surfaces[i].TriangleCount() < m.Surfaces[small].TriangleCount() {
				small = i
			}
		}
		into, best := -1, math32.Inf(1)
		for i := range m.Surfaces {
			if i == small {
				continue
			}
			if d := mismatch(mats.At(m.Surfaces[small].Texture), mats.At(m.Surfaces[i].Texture)); d < best {
				into, best = i, d
			}
		}
		appendSurface(&m.Surfaces[into], &m.Surfaces[small])
		m.Surfaces = append(m.Surfaces[:small], m.Surfaces[small+1:]...)
		removed++
	}
	return removed
}

// MergeSmall combines every mesh with fewer than minTriangles triangles into one mesh named name,
// with surfaces joined by texture. Larger meshes are returned unchanged and first.
func MergeSmall(meshes []*mesh.Mesh, minTriangles int, name string) []*mesh.Mesh {
	var keep []*mesh.Mesh
	combined := &mesh.Mesh{Name: name}
	small := 0
	for _, m := range meshes {
		if m.TriangleCount() >= minTriangles {
			keep = append(keep, m)
			continue
		}
		small++
		for i := range m.Surfaces {
			s := &m.Surfaces[i]
			found := false
			for j := range combined.Surfaces {
				if combined.Surfaces[j].Texture == s.Texture {
					appendSurface(&combined.Surfaces[j], s)
					found = true
					break
				}
			}
			if !found {
				combined.Surfaces = append(combined.Surfaces, s.Clone())
			}
		}
	}
	if small < 2 {
		return meshes
	}
	return append(keep, combined)
}
