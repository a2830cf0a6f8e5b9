// Package meshopt tunes lowered meshes for a target hardware profile.
package meshopt

import (
	"github.com/chewxy/math32"

	"wcs-converter/internal/mesh"
)

// Technique names recorded in Result.Techniques, in pipeline order.
const (
	TechWeld             = "vertex_welding"
	TechReduce           = "triangle_reduction"
	TechMergeMaterials   = "material_merging"
	TechCapMaterials     = "material_cap"
	TechUVRebase         = "uv_rebasing"
	TechVertexCompress   = "vertex_compression"
	TechNormalCompress   = "normal_compression"
	TechTextureCompress  = "texture_compression"
	TechIndexReorder     = "index_reorder"
	maxReductionAttempts = 4
)

// Compression describes the storage formats a writer should use.
type Compression struct {
	VertexFormat  string `json:"vertex_format"`
	NormalFormat  string `json:"normal_format"`
	IndexFormat   string `json:"index_format"`
	TextureFormat string `json:"texture_format"`
}

type Result struct {
	Target             Target      `json:"target"`
	OriginalVertices   int         `json:"original_vertices"`
	OriginalTriangles  int         `json:"original_triangles"`
	OriginalMaterials  int         `json:"original_materials"`
	OptimizedVertices  int         `json:"optimized_vertices"`
	OptimizedTriangles int         `json:"optimized_triangles"`
	OptimizedMaterials int         `json:"optimized_materials"`
	Techniques         []string    `json:"techniques"`
	Compression        Compression `json:"compression"`
	CacheMissBefore    float32     `json:"acmr_before"`
	CacheMissAfter     float32     `json:"acmr_after"`
	OriginalBytes      int         `json:"original_bytes"`
	OptimizedBytes     int         `json:"optimized_bytes"`
	// MemorySavings is the estimated fraction of GPU memory saved.
	MemorySavings float32 `json:"memory_savings"`
}

func (r *Result) applied(tech string) { r.Techniques = append(r.Techniques, tech) }

// Applied reports whether a technique ran.
func (r *Result) Applied(tech string) bool {
	for _, t := range r.Techniques {
		if t == tech {
			return true
		}
	}
	return false
}

// Optimize runs the fixed pipeline on a copy of m: weld, reduce, merge materials, rebase UVs,
// choose compression formats and reorder indices for the vertex cache.
func Optimize(m *mesh.Mesh, mats Materials, p Profile) (*mesh.Mesh, Result) {
	out := m.Clone()
	res := Result{
		Target:            p.Target,
		OriginalVertices:  m.VertexCount(),
		OriginalTriangles: m.TriangleCount(),
		OriginalMaterials: len(m.Surfaces),
		OriginalBytes:     estimateBytes(m, Compression{VertexFormat: "float32", NormalFormat: "float32", IndexFormat: "uint32"}),
		CacheMissBefore:   meshACMR(m),
	}

	if p.MergeDistance > 0 && out.Weld(p.MergeDistance) > 0 {
		res.applied(TechWeld)
	}

	if reduceTo(out, p) {
		res.applied(TechReduce)
	}

	if MergeMaterials(out, mats) > 0 {
		res.applied(TechMergeMaterials)
	}
	if CapMaterials(out, mats, p.MaxMaterialsPerMesh) > 0 {
		res.applied(TechCapMaterials)
	}

	if RebaseUVs(out) > 0 {
		res.applied(TechUVRebase)
	}

	res.Compression = compression(out, p)
	if p.UseVertexCompression {
		res.applied(TechVertexCompress)
	}
	if p.UseNormalCompression {
		res.applied(TechNormalCompress)
	}
	if p.UseTextureCompression {
		res.applied(TechTextureCompress)
	}

	if reorder(out) {
		res.applied(TechIndexReorder)
	}

	res.OptimizedVertices = out.VertexCount()
	res.OptimizedTriangles = out.TriangleCount()
	res.OptimizedMaterials = len(out.Surfaces)
	res.CacheMissAfter = meshACMR(out)
	res.OptimizedBytes = estimateBytes(out, res.Compression)
	if res.OriginalBytes > 0 {
		res.MemorySavings = 1 - float32(res.OptimizedBytes)/float32(res.OriginalBytes)
	}
	return out, res
}

// reduceTo decimates m toward the smaller of the triangle cap and the aggressiveness keep ratio,
// then further while the vertex cap is exceeded.
func reduceTo(m *mesh.Mesh, p Profile) bool {
	n := m.TriangleCount()
	if n == 0 {
		return false
	}
	keep := math32.Min(1-p.Aggressiveness, float32(p.MaxTrianglesPerMesh)/float32(n))
	reduced := false
	if keep < 1 {
		*m = *m.Decimate(keep)
		reduced = true
	}
	for i := 0; i < maxReductionAttempts && m.VertexCount() > p.MaxVerticesPerMesh; i++ {
		*m = *m.Decimate(float32(p.MaxVerticesPerMesh) / float32(m.VertexCount()))
		reduced = true
	}
	return reduced
}

// RebaseUVs shifts each surface's UVs by whole tiles so they start inside [0,1). Repeating
// textures look the same after the shift. It returns the number of surfaces changed.
func RebaseUVs(m *mesh.Mesh) int {
	changed := 0
	for i := range m.Surfaces {
		s := &m.Surfaces[i]
		if len(s.Vertices) == 0 {
			continue
		}
		lo := [2]float32{math32.Inf(1), math32.Inf(1)}
		for _, v := range s.Vertices {
			lo[0] = math32.Min(lo[0], v.UV[0])
			lo[1] = math32.Min(lo[1], v.UV[1])
		}
		shift := [2]float32{math32.Floor(lo[0]), math32.Floor(lo[1])}
		if shift == [2]float32{} {
			continue
		}
		for j := range s.Vertices {
			s.Vertices[j].UV[0] -= shift[0]
			s.Vertices[j].UV[1] -= shift[1]
		}
		changed++
	}
	return changed
}

func compression(m *mesh.Mesh, p Profile) Compression {
	c := Compression{VertexFormat: "float32", NormalFormat: "float32", IndexFormat: "uint32"}
	if p.UseVertexCompression {
		c.VertexFormat = "float16"
	}
	if p.UseNormalCompression {
		c.NormalFormat = "octahedral16"
	}
	if p.UseTextureCompression {
		c.TextureFormat = "vram_compressed"
	}
	small := true
	for i := range m.Surfaces {
		if len(m.Surfaces[i].Vertices) > 1<<16 {
			small = false
		}
	}
	if small {
		c.IndexFormat = "uint16"
	}
	return c
}

// estimateBytes sizes the vertex and index buffers: position, normal, UV and colour per vertex.
func estimateBytes(m *mesh.Mesh, c Compression) int {
	perVertex := 12 + 12 + 8 + 16
	if c.VertexFormat == "float16" {
		perVertex = 6 + 12 + 4 + 4
	}
	if c.NormalFormat == "octahedral16" {
		perVertex -= 12 - 4
	}
	perIndex := 4
	if c.IndexFormat == "uint16" {
		perIndex = 2
	}
	n := 0
	for i := range m.Surfaces {
		n += len(m.Surfaces[i].Vertices)*perVertex + len(m.Surfaces[i].Indices)*perIndex
	}
	return n
}

func meshACMR(m *mesh.Mesh) float32 {
	misses, tris := float32(0), 0
	for i := range m.Surfaces {
		s := &m.Surfaces[i]
		misses += ACMR(s.Indices, vertexCacheSize) * float32(s.TriangleCount())
		tris += s.TriangleCount()
	}
	if tris == 0 {
		return 0
	}
	return misses / float32(tris)
}

// reorder keeps a surface's new index order only when it lowers the cache miss ratio.
func reorder(m *mesh.Mesh) bool {
	improved := false
	for i := range m.Surfaces {
		s := &m.Surfaces[i]
		next := Reorder(s.Indices, len(s.Vertices), vertexCacheSize)
		if ACMR(next, vertexCacheSize) < ACMR(s.Indices, vertexCacheSize) {
			s.Indices = next
			improved = true
		}
	}
	return improved
}
