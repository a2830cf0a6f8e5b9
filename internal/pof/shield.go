package pof

import (
	"wcs-converter/internal/binreader"
	"wcs-converter/internal/bsp"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/mathutil"
)

func decodeShield(c *chunk, m *Model) error {
	s := &ShieldMesh{}
	m.Shield = s

	nv := c.count(int64(c.u32()), 12, "vertices")
	for i := 0; i < nv && c.err == nil; i++ {
		s.Vertices = append(s.Vertices, c.vec())
	}
	nn := c.count(int64(c.u32()), 12, "normals")
	for i := 0; i < nn && c.err == nil; i++ {
		s.Normals = append(s.Normals, c.vec())
	}
	np := c.count(int64(c.u32()), 16, "polygons")
	for i := 0; i < np && c.err == nil; i++ {
		poly := ShieldPolygon{Normal: c.vec()}
		n := c.count(int64(c.u32()), 4, "polygon_vertices")
		for j := 0; j < n && c.err == nil; j++ {
			idx := c.u32()
			if c.err != nil {
				break
			}
			if int(idx) >= len(s.Vertices) {
				c.report(diag.Error, diag.Validation, diag.DropRecord,
					diag.Fields{"vertex_idx": idx, "num_vertices": len(s.Vertices), "polygon": i}, "shield vertex index out of range")
				continue
			}
			poly.Indices = append(poly.Indices, idx)
		}
		if c.err != nil {
			break
		}
		s.Polygons = append(s.Polygons, poly)
	}
	return c.err
}

// decodeShieldTree stores the SLDC bytes; the tree is built once the shield mesh is known.
func decodeShieldTree(c *chunk, _ *Model) error {
	size := c.u32()
	if c.err != nil {
		return c.err
	}
	if uint64(size) > uint64(c.r.Remaining()) {
		c.report(diag.Warning, diag.Parsing, diag.Truncate,
			diag.Fields{"tree_size": size, "remaining": c.r.Remaining()}, "shield tree size exceeds chunk")
		size = uint32(c.r.Remaining())
	}
	c.framer.sldcOffset = c.pos()
	raw, _ := c.r.Bytes(int(size))
	c.framer.sldc = append([]byte{}, raw...)
	return nil
}

const (
	sldcSplit      = 0
	sldcLeaf       = 1
	sldcHeaderSize = 8 + 24
)

type shieldTreeBuilder struct {
	data   []byte
	mesh   *ShieldMesh
	scope  diag.Scope
	offset int64
}

func (f *framer) buildShieldTree() {
	if f.model.Shield == nil {
		f.report(diag.Warning, diag.DataIntegrity, int(f.sldcOffset), ChunkSLDC, diag.AttachToRoot, nil,
			"shield collision tree without shield mesh")
		f.model.Shield = &ShieldMesh{}
	}
	b := &shieldTreeBuilder{
		data:   f.sldc,
		mesh:   f.model.Shield,
		scope:  f.sink.Scope(uint32(ChunkSLDC), f.model.DeclaredVersion),
		offset: f.sldcOffset,
	}
	if len(f.sldc) == 0 {
		f.model.Shield.Tree = bsp.Empty{}
		return
	}
	f.model.Shield.Tree = b.node(0, 0)
}

func (b *shieldTreeBuilder) warn(off int, rec diag.Recovery, ctx diag.Fields, msg string) {
	b.scope.Report(diag.Warning, diag.Parsing, b.offset+int64(off), rec, ctx, "%s", msg)
}

func (b *shieldTreeBuilder) node(off, depth int) bsp.Node {
	if depth > 256 {
		b.warn(off, diag.TreatAsEmpty, diag.Fields{"depth": depth}, "shield tree too deep")
		return bsp.Empty{}
	}
	if off+sldcHeaderSize > len(b.data) {
		b.warn(off, diag.TreatAsEmpty, nil, "shield tree record truncated")
		return bsp.Empty{}
	}
	r := binreader.New(b.data[off:])
	typ, _ := r.U32()
	size, _ := r.U32()
	box, _ := r.BBox()
	if size < sldcHeaderSize || uint64(off)+uint64(size) > uint64(len(b.data)) {
		b.warn(off, diag.TreatAsEmpty, diag.Fields{"size": size}, "shield tree record size out of bounds")
		return bsp.Empty{}
	}
	rec := binreader.New(b.data[off : off+int(size)])
	_ = rec.Skip(sldcHeaderSize)

	switch typ {
	case sldcSplit:
		front, err1 := rec.U32()
		back, err2 := rec.U32()
		if err1 != nil || err2 != nil {
			b.warn(off, diag.TreatAsEmpty, nil, "shield split record truncated")
			return bsp.Empty{}
		}
		return &bsp.Split{
			Normal:     mathutil.Vec3{0, 0, 1},
			BBox:       box,
			BBoxStored: true,
			Front:      b.child(off, front, depth),
			Back:       b.child(off, back, depth),
			Offset:     off,
		}
	case sldcLeaf:
		n, err := rec.U32()
		if err != nil || uint64(n)*4 > uint64(rec.Remaining()) {
			b.warn(off, diag.TreatAsEmpty, diag.Fields{"polygons": n}, "shield leaf record truncated")
			return bsp.Empty{}
		}
		leaf := &bsp.Leaf{BBox: box, Offset: off}
		for i := 0; i < int(n); i++ {
			idx, _ := rec.U32()
			p, ok := b.polygon(idx)
			if !ok {
				b.warn(off, diag.DropRecord, diag.Fields{"polygon": idx, "num_polygons": len(b.mesh.Polygons)},
					"shield tree references missing polygon")
				continue
			}
			leaf.Polygons = append(leaf.Polygons, p)
		}
		return leaf
	}
	b.warn(off, diag.TreatAsEmpty, diag.Fields{"type": typ}, "unknown shield tree record")
	return bsp.Empty{}
}

// child follows an offset relative to the record start. Offsets only point forward.
func (b *shieldTreeBuilder) child(off int, rel uint32, depth int) bsp.Node {
	if rel == 0 {
		return bsp.Empty{}
	}
	if uint64(off)+uint64(rel) >= uint64(len(b.data)) {
		b.warn(off, diag.TreatAsEmpty, diag.Fields{"child_offset": rel}, "shield tree child offset out of range")
		return bsp.Empty{}
	}
	return b.node(off+int(rel), depth+1)
}

func (b *shieldTreeBuilder) polygon(idx uint32) (bsp.Polygon, bool) {
	if int(idx) >= len(b.mesh.Polygons) {
		return bsp.Polygon{}, false
	}
	sp := b.mesh.Polygons[idx]
	if len(sp.Indices) < 3 {
		return bsp.Polygon{}, false
	}
	p := bsp.Polygon{
		Normal:       sp.Normal,
		TextureIndex: bsp.Untextured,
		Indices:      append([]uint32(nil), sp.Indices...),
	}
	for _, vi := range sp.Indices {
		p.Vertices = append(p.Vertices, b.mesh.Vertices[vi])
		p.VertexNormals = append(p.VertexNormals, sp.Normal)
		p.UVs = append(p.UVs, [2]float32{})
	}
	p.PlaneDistance = p.Normal.Dot(p.Vertices[0])
	return p, true
}
