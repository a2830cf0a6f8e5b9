// Package poftest serialises POF files for tests.
package poftest

import (
	"encoding/binary"
	"math"

	"wcs-converter/internal/mathutil"
)

// Magic is "PSPO" as a little-endian u32.
const Magic uint32 = 0x4F505350

// Payload is a little-endian byte writer.
type Payload struct {
	buf []byte
}

func (p *Payload) Bytes() []byte { return p.buf }

func (p *Payload) U8(v uint8) *Payload { p.buf = append(p.buf, v); return p }

func (p *Payload) U32(v uint32) *Payload {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
	return p
}

func (p *Payload) I32(v int32) *Payload { return p.U32(uint32(v)) }

func (p *Payload) F32(v float32) *Payload { return p.U32(math.Float32bits(v)) }

func (p *Payload) Vec(v mathutil.Vec3) *Payload { return p.F32(v[0]).F32(v[1]).F32(v[2]) }

func (p *Payload) Box(b mathutil.BoundingBox) *Payload { return p.Vec(b.Min).Vec(b.Max) }

func (p *Payload) Str(s string) *Payload {
	p.U32(uint32(len(s)))
	p.buf = append(p.buf, s...)
	return p
}

func (p *Payload) Raw(b []byte) *Payload { p.buf = append(p.buf, b...); return p }

// File builds a POF container.
type File struct {
	Payload
}

func New(version int32) *File {
	f := &File{}
	f.U32(Magic).I32(version)
	return f
}

// Chunk appends a record with the payload's real length.
func (f *File) Chunk(id string, payload []byte) *File {
	return f.ChunkWithLength(id, int32(len(payload)), payload)
}

// ChunkWithLength appends a record whose declared length may disagree with the payload.
func (f *File) ChunkWithLength(id string, length int32, payload []byte) *File {
	f.Raw([]byte(id[:4])).I32(length).Raw(payload)
	return f
}

type Header struct {
	MaxRadius     float32
	Flags         uint32
	NumSubObjects int32
	BBox          mathutil.BoundingBox
	Detail        []int32
	Debris        []int32
	Mass          float32
	MassCenter    mathutil.Vec3
	Inertia       [3]mathutil.Vec3
	// CrossSections nil writes -1.
	CrossSections [][2]float32
	Lights        []Light
}

type Light struct {
	Position mathutil.Vec3
	Type     uint32
}

// HeaderPayload writes the fields gated by version the way the exporter does.
func HeaderPayload(version int32, h Header) []byte {
	p := &Payload{}
	p.F32(h.MaxRadius).U32(h.Flags).I32(h.NumSubObjects).Box(h.BBox)
	p.I32(int32(len(h.Detail)))
	for _, d := range h.Detail {
		p.I32(d)
	}
	p.I32(int32(len(h.Debris)))
	for _, d := range h.Debris {
		p.I32(d)
	}
	if version >= 1903 {
		p.F32(h.Mass).Vec(h.MassCenter)
		for _, row := range h.Inertia {
			p.Vec(row)
		}
	}
	if version >= 2014 {
		if h.CrossSections == nil {
			p.I32(-1)
		} else {
			p.I32(int32(len(h.CrossSections)))
			for _, cs := range h.CrossSections {
				p.F32(cs[0]).F32(cs[1])
			}
		}
	}
	if version >= 2007 {
		p.I32(int32(len(h.Lights)))
		for _, l := range h.Lights {
			p.Vec(l.Position).U32(l.Type)
		}
	}
	return p.Bytes()
}

func TexturesPayload(names ...string) []byte {
	p := &Payload{}
	p.U32(uint32(len(names)))
	for _, n := range names {
		p.Str(n)
	}
	return p.Bytes()
}

type SubObject struct {
	Number     int32
	Radius     float32
	Parent     int32
	Offset     mathutil.Vec3
	Center     mathutil.Vec3
	BBox       mathutil.BoundingBox
	Name       string
	Properties string
	Movement   int32
	Axis       int32
	BSP        []byte
}

// NewSubObject returns a static root subobject with no movement axis.
func NewSubObject(number int32, name string, bspData []byte) SubObject {
	return SubObject{
		Number:   number,
		Radius:   1,
		Parent:   -1,
		BBox:     mathutil.BoundingBox{Min: mathutil.Vec3{-1, -1, -1}, Max: mathutil.Vec3{1, 1, 1}},
		Name:     name,
		Movement: -1,
		Axis:     -1,
		BSP:      bspData,
	}
}

func SubObjectPayload(s SubObject) []byte {
	p := &Payload{}
	p.I32(s.Number).F32(s.Radius).I32(s.Parent).Vec(s.Offset).Vec(s.Center).Box(s.BBox)
	p.Str(s.Name).Str(s.Properties).I32(s.Movement).I32(s.Axis).I32(0)
	p.U32(uint32(len(s.BSP))).Raw(s.BSP)
	return p.Bytes()
}

type Point struct {
	Position mathutil.Vec3
	Normal   mathutil.Vec3
}

// BanksPayload writes a GPNT or MPNT payload.
func BanksPayload(banks ...[]Point) []byte {
	p := &Payload{}
	p.U32(uint32(len(banks)))
	for _, b := range banks {
		p.U32(uint32(len(b)))
		for _, pt := range b {
			p.Vec(pt.Position).Vec(pt.Normal)
		}
	}
	return p.Bytes()
}

type Dock struct {
	Properties string
	Paths      []uint32
	Points     []Point
}

func DocksPayload(docks ...Dock) []byte {
	p := &Payload{}
	p.U32(uint32(len(docks)))
	for _, d := range docks {
		p.Str(d.Properties)
		p.U32(uint32(len(d.Paths)))
		for _, path := range d.Paths {
			p.U32(path)
		}
		p.U32(uint32(len(d.Points)))
		for _, pt := range d.Points {
			p.Vec(pt.Position).Vec(pt.Normal)
		}
	}
	return p.Bytes()
}

type Glow struct {
	Position mathutil.Vec3
	Normal   mathutil.Vec3
	Radius   float32
}

type Thruster struct {
	Properties string
	Glows      []Glow
}

func ThrustersPayload(version int32, thrusters ...Thruster) []byte {
	p := &Payload{}
	p.U32(uint32(len(thrusters)))
	for _, t := range thrusters {
		p.U32(uint32(len(t.Glows)))
		if version >= 2117 {
			p.Str(t.Properties)
		}
		for _, g := range t.Glows {
			p.Vec(g.Position).Vec(g.Normal).F32(g.Radius)
		}
	}
	return p.Bytes()
}

type Eye struct {
	SubObject int32
	Position  mathutil.Vec3
	Normal    mathutil.Vec3
}

func EyesPayload(eyes ...Eye) []byte {
	p := &Payload{}
	p.U32(uint32(len(eyes)))
	for _, e := range eyes {
		p.I32(e.SubObject).Vec(e.Position).Vec(e.Normal)
	}
	return p.Bytes()
}

type Special struct {
	Name       string
	Properties string
	Position   mathutil.Vec3
	Radius     float32
}

func SpecialsPayload(specials ...Special) []byte {
	p := &Payload{}
	p.U32(uint32(len(specials)))
	for _, s := range specials {
		p.Str(s.Name).Str(s.Properties).Vec(s.Position).F32(s.Radius)
	}
	return p.Bytes()
}

type PathNode struct {
	Position   mathutil.Vec3
	Rotation   mathutil.Vec3
	Time       float32
	Properties string
}

type Path struct {
	Name   string
	Parent string
	Nodes  []PathNode
}

func PathsPayload(version int32, paths ...Path) []byte {
	p := &Payload{}
	p.U32(uint32(len(paths)))
	for _, path := range paths {
		p.Str(path.Name)
		if version >= 2002 {
			p.Str(path.Parent)
		}
		p.U32(uint32(len(path.Nodes)))
		for _, n := range path.Nodes {
			p.Vec(n.Position).Vec(n.Rotation).F32(n.Time).Str(n.Properties)
		}
	}
	return p.Bytes()
}

type ShieldPolygon struct {
	Normal  mathutil.Vec3
	Indices []uint32
}

func ShieldPayload(verts, normals []mathutil.Vec3, polys ...ShieldPolygon) []byte {
	p := &Payload{}
	p.U32(uint32(len(verts)))
	for _, v := range verts {
		p.Vec(v)
	}
	p.U32(uint32(len(normals)))
	for _, n := range normals {
		p.Vec(n)
	}
	p.U32(uint32(len(polys)))
	for _, poly := range polys {
		p.Vec(poly.Normal).U32(uint32(len(poly.Indices)))
		for _, i := range poly.Indices {
			p.U32(i)
		}
	}
	return p.Bytes()
}

// ShieldLeaf is an SLDC leaf record.
func ShieldLeaf(box mathutil.BoundingBox, polys ...uint32) []byte {
	p := &Payload{}
	p.U32(1).U32(uint32(8 + 24 + 4 + 4*len(polys))).Box(box).U32(uint32(len(polys)))
	for _, i := range polys {
		p.U32(i)
	}
	return p.Bytes()
}

// ShieldSplit is an SLDC split record followed by its front and back subtrees.
func ShieldSplit(box mathutil.BoundingBox, front, back []byte) []byte {
	const size = 8 + 24 + 8
	var frontOff, backOff uint32
	if front != nil {
		frontOff = size
	}
	if back != nil {
		backOff = uint32(size + len(front))
	}
	p := &Payload{}
	p.U32(0).U32(size).Box(box).U32(frontOff).U32(backOff).Raw(front).Raw(back)
	return p.Bytes()
}

func ShieldTreePayload(tree []byte) []byte {
	p := &Payload{}
	return p.U32(uint32(len(tree))).Raw(tree).Bytes()
}

type Insignia struct {
	Texture  uint32
	Position mathutil.Vec3
	Size     float32
	Rotation float32
}

func InsigniaPayload(items ...Insignia) []byte {
	p := &Payload{}
	p.U32(uint32(len(items)))
	for _, i := range items {
		p.U32(i.Texture).Vec(i.Position).F32(i.Size).F32(i.Rotation)
	}
	return p.Bytes()
}

type GlowBank struct {
	Position  mathutil.Vec3
	Normal    mathutil.Vec3
	Radius    float32
	Color     [4]float32
	Intensity float32
	Texture   uint32
}

func GlowsPayload(glows ...GlowBank) []byte {
	p := &Payload{}
	p.U32(uint32(len(glows)))
	for _, g := range glows {
		p.Vec(g.Position).Vec(g.Normal).F32(g.Radius)
		for _, c := range g.Color {
			p.F32(c)
		}
		p.F32(g.Intensity).U32(g.Texture)
	}
	return p.Bytes()
}

func AutocenterPayload(v mathutil.Vec3) []byte {
	return (&Payload{}).Vec(v).Bytes()
}
