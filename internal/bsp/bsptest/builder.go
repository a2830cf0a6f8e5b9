// Package bsptest serialises BSP slices for tests.
package bsptest

import (
	"encoding/binary"
	"math"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/mathutil"
)

type Builder struct {
	buf []byte
}

func New() *Builder { return &Builder{} }

func (b *Builder) Bytes() []byte { return append([]byte(nil), b.buf...) }

// Len is the current write position, i.e. the start of the next record.
func (b *Builder) Len() int { return len(b.buf) }

func (b *Builder) u8(v uint8)   { b.buf = append(b.buf, v) }
func (b *Builder) u16(v uint16) { b.buf = binary.LittleEndian.AppendUint16(b.buf, v) }
func (b *Builder) u32(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }
func (b *Builder) i32(v int32)  { b.u32(uint32(v)) }
func (b *Builder) f32(v float32) {
	b.u32(math.Float32bits(v))
}
func (b *Builder) vec(v mathutil.Vec3) {
	b.f32(v[0])
	b.f32(v[1])
	b.f32(v[2])
}
func (b *Builder) box(bb mathutil.BoundingBox) {
	b.vec(bb.Min)
	b.vec(bb.Max)
}

// begin writes a record header with a placeholder size and returns the record start.
func (b *Builder) begin(op bsp.Opcode) int {
	start := len(b.buf)
	b.u32(uint32(op))
	b.u32(0)
	return start
}

func (b *Builder) end(start int) {
	binary.LittleEndian.PutUint32(b.buf[start+4:], uint32(len(b.buf)-start))
}

// DefPoints writes the vertex table; normals[i] lists the normals of vertex i.
func (b *Builder) DefPoints(verts []mathutil.Vec3, normals [][]mathutil.Vec3) int {
	start := b.begin(bsp.OpDefPoints)
	total := 0
	for i := range verts {
		if i < len(normals) {
			total += len(normals[i])
		}
	}
	b.u32(uint32(len(verts)))
	b.u32(uint32(total))
	b.u32(uint32(bsp.HeaderSize + 12 + len(verts)))
	for i := range verts {
		if i < len(normals) {
			b.u8(uint8(len(normals[i])))
		} else {
			b.u8(0)
		}
	}
	for i, v := range verts {
		b.vec(v)
		if i < len(normals) {
			for _, n := range normals[i] {
				b.vec(n)
			}
		}
	}
	b.end(start)
	return start
}

// SortNorm writes a SORTNORM record. The bbox is written when non-nil.
func (b *Builder) SortNorm(normal, point mathutil.Vec3, front, back int32, bbox *mathutil.BoundingBox) int {
	start := b.begin(bsp.OpSortNorm)
	b.vec(normal)
	b.vec(point)
	b.i32(0)
	b.i32(front)
	b.i32(back)
	b.i32(0)
	b.i32(0)
	b.i32(0)
	if bbox != nil {
		b.box(*bbox)
	}
	b.end(start)
	return start
}

func (b *Builder) SortNorm2(front, back int32, bbox mathutil.BoundingBox) int {
	start := b.begin(bsp.OpSortNorm2)
	b.i32(front)
	b.i32(back)
	b.box(bbox)
	b.end(start)
	return start
}

// Link patches the child offsets of the splitter at start. Offsets are absolute positions in the
// slice; zero leaves the child empty.
func (b *Builder) Link(start, front, back int) {
	rel := func(abs int) uint32 {
		if abs == 0 {
			return 0
		}
		return uint32(abs - start)
	}
	at := start + bsp.HeaderSize
	if bsp.Opcode(binary.LittleEndian.Uint32(b.buf[start:])) == bsp.OpSortNorm {
		at += 12 + 12 + 4
	}
	binary.LittleEndian.PutUint32(b.buf[at:], rel(front))
	binary.LittleEndian.PutUint32(b.buf[at+4:], rel(back))
}

func (b *Builder) BoundBox(bbox mathutil.BoundingBox) int {
	start := b.begin(bsp.OpBoundBox)
	b.box(bbox)
	b.end(start)
	return start
}

func (b *Builder) EndOfBranch() int {
	start := b.begin(bsp.OpEndOfBranch)
	b.end(start)
	return start
}

// Poly describes a polygon record. Missing Normals and UVs are written as zero.
type Poly struct {
	Normal  mathutil.Vec3
	Texture uint32
	Verts   []uint32
	Normals []uint32
	UVs     [][2]float32
	Color   [3]uint8
	BBox    mathutil.BoundingBox
}

func (p Poly) normal(i int) uint32 {
	if i < len(p.Normals) {
		return p.Normals[i]
	}
	return 0
}

func (p Poly) uv(i int) [2]float32 {
	if i < len(p.UVs) {
		return p.UVs[i]
	}
	return [2]float32{}
}

func (b *Builder) TmapPoly(p Poly) int {
	start := b.begin(bsp.OpTmapPoly)
	b.vec(p.Normal)
	b.vec(mathutil.Vec3{})
	b.f32(0)
	b.u32(uint32(len(p.Verts)))
	b.u32(p.Texture)
	for i, v := range p.Verts {
		b.u16(uint16(v))
		b.u16(uint16(p.normal(i)))
		uv := p.uv(i)
		b.f32(uv[0])
		b.f32(uv[1])
	}
	b.end(start)
	return start
}

func (b *Builder) TmapPoly2(p Poly) int {
	start := b.begin(bsp.OpTmapPoly2)
	b.vec(p.Normal)
	b.vec(mathutil.Vec3{})
	b.f32(0)
	b.box(p.BBox)
	b.u32(uint32(len(p.Verts)))
	b.u32(p.Texture)
	for i, v := range p.Verts {
		b.u32(v)
		b.u32(p.normal(i))
		uv := p.uv(i)
		b.f32(uv[0])
		b.f32(uv[1])
	}
	b.end(start)
	return start
}

func (b *Builder) FlatPoly(p Poly) int {
	start := b.begin(bsp.OpFlatPoly)
	b.vec(p.Normal)
	b.vec(mathutil.Vec3{})
	b.f32(0)
	b.u32(uint32(len(p.Verts)))
	b.u8(p.Color[0])
	b.u8(p.Color[1])
	b.u8(p.Color[2])
	b.u8(0)
	for i, v := range p.Verts {
		b.u16(uint16(v))
		b.u16(uint16(p.normal(i)))
	}
	b.end(start)
	return start
}

// Raw writes an arbitrary record with the given declared size; a zero size is computed.
func (b *Builder) Raw(op uint32, size uint32, payload []byte) int {
	start := len(b.buf)
	b.u32(op)
	if size == 0 {
		size = uint32(bsp.HeaderSize + len(payload))
	}
	b.u32(size)
	b.buf = append(b.buf, payload...)
	return start
}

// Triangle is a convenience slice: three vertices, one normal, one TMAPPOLY leaf.
func Triangle(texture uint32) []byte {
	b := New()
	b.DefPoints([]mathutil.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]mathutil.Vec3{{{0, 0, 1}}})
	b.BoundBox(mathutil.BoundingBox{Min: mathutil.Vec3{0, 0, 0}, Max: mathutil.Vec3{1, 1, 0}})
	b.TmapPoly(Poly{Normal: mathutil.Vec3{0, 0, 1}, Texture: texture, Verts: []uint32{0, 1, 2}})
	b.EndOfBranch()
	return b.Bytes()
}
