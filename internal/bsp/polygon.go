package bsp

import (
	"wcs-converter/internal/binreader"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/mathutil"
)

func (d *decoder) polygon(op Opcode, off, size int) (Polygon, bool) {
	p, _, ok := d.polygonWithBox(op, off, size)
	return p, ok
}

// polygonWithBox decodes FLATPOLY, TMAPPOLY or TMAPPOLY2. The box is the stored one for TMAPPOLY2
// and the vertex bounds otherwise.
func (d *decoder) polygonWithBox(op Opcode, off, size int) (Polygon, mathutil.BoundingBox, bool) {
	r := d.record(off, size)
	var p Polygon
	var box mathutil.BoundingBox
	var n uint32
	var errs [6]error

	p.Normal, errs[0] = r.Vec3()
	p.Center, errs[1] = r.Vec3()
	p.Radius, errs[2] = r.F32()
	stored := false
	if op == OpTmapPoly2 {
		box, errs[3] = r.BBox()
		stored = errs[3] == nil
	}
	n, errs[4] = r.U32()
	switch op {
	case OpFlatPoly:
		p.TextureIndex = Untextured
		var rgb []byte
		rgb, errs[5] = r.Bytes(4)
		if errs[5] == nil {
			copy(p.Color[:], rgb[:3])
		}
	default:
		p.TextureIndex, errs[5] = r.U32()
	}
	if err := firstErr(errs[:]...); err != nil {
		d.dropped++
		d.report(diag.Error, diag.Parsing, off, diag.DropRecord, diag.Fields{"opcode": op.String()}, "polygon record truncated")
		return Polygon{}, box, false
	}

	if n < 3 {
		d.dropped++
		d.report(diag.Error, diag.Validation, off, diag.DropRecord, diag.Fields{"num_vertices": n}, "polygon has fewer than 3 vertices")
		return Polygon{}, box, false
	}
	stride := polygonStride(op)
	if int64(n)*int64(stride) > int64(r.Remaining()) {
		d.dropped++
		d.report(diag.Error, diag.Parsing, off, diag.DropRecord,
			diag.Fields{"num_vertices": n, "remaining": r.Remaining()}, "polygon vertex list exceeds record")
		return Polygon{}, box, false
	}

	p.Vertices = make([]mathutil.Vec3, n)
	p.VertexNormals = make([]mathutil.Vec3, n)
	p.UVs = make([][2]float32, n)
	p.Indices = make([]uint32, n)
	for i := 0; i < int(n); i++ {
		vi, ni, uv := readCorner(r, op)
		p.Indices[i] = vi
		p.UVs[i] = uv
		if int64(vi) < int64(len(d.points.Vertices)) {
			p.Vertices[i] = d.points.Vertices[vi]
		} else {
			d.report(diag.Error, diag.Validation, off, diag.SubstituteZero,
				diag.Fields{"vertex_idx": vi, "num_vertices": len(d.points.Vertices)}, "polygon vertex index out of range")
		}
		if int64(ni) < int64(len(d.points.Normals)) {
			p.VertexNormals[i] = d.points.Normals[ni]
		} else {
			p.VertexNormals[i] = p.Normal
			d.report(diag.Warning, diag.DataIntegrity, off, diag.NoRecovery,
				diag.Fields{"normal_idx": ni, "num_normals": len(d.points.Normals)}, "polygon normal index out of range")
		}
	}
	p.PlaneDistance = p.Normal.Dot(p.Vertices[0])

	if !stored {
		box, _ = p.Bounds()
	}
	return p, box, true
}

func polygonStride(op Opcode) int {
	switch op {
	case OpFlatPoly:
		return 4
	case OpTmapPoly:
		return 12
	}
	return 16
}

// readCorner reads one vertex entry. Bounds were checked against the stride beforehand.
func readCorner(r *binreader.Reader, op Opcode) (vi, ni uint32, uv [2]float32) {
	switch op {
	case OpFlatPoly:
		v, _ := r.U16()
		n, _ := r.U16()
		return uint32(v), uint32(n), uv
	case OpTmapPoly:
		v, _ := r.U16()
		n, _ := r.U16()
		vi, ni = uint32(v), uint32(n)
	default:
		vi, _ = r.U32()
		ni, _ = r.U32()
	}
	uv[0], _ = r.F32()
	uv[1], _ = r.F32()
	return vi, ni, uv
}
