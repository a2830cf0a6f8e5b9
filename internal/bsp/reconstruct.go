package bsp

import (
	"context"

	"github.com/pkg/errors"

	"wcs-converter/internal/binreader"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/mathutil"
)

// ErrCancelled is returned when the context is done before the slice has been decoded.
var ErrCancelled = errors.New("cancelled")

type Options struct {
	// Version is the effective POF version; it gates the SORTNORM bounding box.
	Version int32
	// MaxChunkSize caps a single record. Zero means DefaultMaxChunkSize.
	MaxChunkSize int
	Sink         *diag.Sink
	// ChunkID and BaseOffset locate the slice inside the file for diagnostics.
	ChunkID    uint32
	BaseOffset int64
}

type Result struct {
	Root   Node
	Points *DefPoints
	Stats  Stats
}

type decoder struct {
	ctx      context.Context
	data     []byte
	opts     Options
	scope    diag.Scope
	points   *DefPoints
	visiting map[int]bool
	dropped  int
	err      error
}

// Reconstruct decodes one BSP slice. The returned error is only ever ErrCancelled;
// malformed input yields an Empty or partial tree plus diagnostics.
func Reconstruct(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	d := &decoder{
		ctx:      ctx,
		data:     data,
		opts:     opts,
		scope:    opts.Sink.Scope(opts.ChunkID, opts.Version),
		points:   &DefPoints{},
		visiting: make(map[int]bool),
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(ErrCancelled, "bsp: %v", err)
	}

	res := &Result{Root: Empty{}, Points: d.points}
	if len(data) == 0 {
		res.Stats = ComputeStats(res.Root, d.points, 0)
		return res, nil
	}

	op, size, ok := d.header(0)
	if !ok {
		res.Stats = ComputeStats(res.Root, d.points, 0)
		return res, nil
	}
	if op != OpDefPoints {
		d.report(diag.Error, diag.Parsing, 0, diag.TreatAsEmpty, diag.Fields{"opcode": op.String()},
			"bsp slice does not start with DEFPOINTS")
		res.Stats = ComputeStats(res.Root, d.points, 0)
		return res, nil
	}
	d.defPoints(0, size)

	res.Root = d.node(size, 0)
	if d.err != nil {
		return nil, d.err
	}
	res.Stats = ComputeStats(res.Root, d.points, d.dropped)
	return res, nil
}

func (d *decoder) report(sev diag.Severity, cat diag.Category, off int, rec diag.Recovery, ctx diag.Fields, format string, args ...any) {
	d.scope.Report(sev, cat, d.opts.BaseOffset+int64(off), rec, ctx, format, args...)
}

func (d *decoder) cancelled() bool {
	if d.err != nil {
		return true
	}
	if err := d.ctx.Err(); err != nil {
		d.err = errors.Wrapf(ErrCancelled, "bsp: %v", err)
		return true
	}
	return false
}

// header validates the record at off. A record that is too short, runs past the slice or exceeds the cap
// is corruption and terminates the branch.
func (d *decoder) header(off int) (Opcode, int, bool) {
	if off < 0 || off+HeaderSize > len(d.data) {
		d.report(diag.Warning, diag.Parsing, off, diag.TreatAsEmpty, diag.Fields{"slice_len": len(d.data)},
			"bsp record header truncated")
		return 0, 0, false
	}
	hr := binreader.New(d.data[off : off+HeaderSize])
	rawOp, _ := hr.U32()
	rawSize, _ := hr.U32()
	op, size := Opcode(rawOp), int(rawSize)
	if size < HeaderSize || size > len(d.data)-off || size > d.opts.MaxChunkSize {
		d.report(diag.Warning, diag.Parsing, off, diag.TreatAsEmpty,
			diag.Fields{"opcode": op.String(), "size": size, "remaining": len(d.data) - off},
			"bsp record size out of bounds")
		return op, 0, false
	}
	return op, size, true
}

// record returns a reader over the record at off, positioned after its header.
func (d *decoder) record(off, size int) *binreader.Reader {
	r := binreader.New(d.data[off : off+size])
	_ = r.Skip(HeaderSize)
	return r
}

func (d *decoder) defPoints(off, size int) {
	r := d.record(off, size)
	nverts, err1 := r.U32()
	nnorms, err2 := r.U32()
	dataOff, err3 := r.U32()
	if err := firstErr(err1, err2, err3); err != nil {
		d.report(diag.Error, diag.Parsing, off, diag.Truncate, nil, "DEFPOINTS header truncated")
		return
	}
	if int(nverts) > r.Remaining() {
		d.report(diag.Error, diag.Parsing, off, diag.Truncate,
			diag.Fields{"num_vertices": nverts, "remaining": r.Remaining()}, "DEFPOINTS vertex count exceeds record")
		nverts = uint32(r.Remaining())
	}
	counts, _ := r.Bytes(int(nverts))
	d.points.NormalCounts = append([]uint8(nil), counts...)

	sum := 0
	for _, c := range counts {
		sum += int(c)
	}
	if sum != int(nnorms) {
		d.report(diag.Warning, diag.DataIntegrity, off, diag.NoRecovery,
			diag.Fields{"num_normals": nnorms, "sum_counts": sum}, "DEFPOINTS normal counts do not sum to normal total")
	}

	minData := r.Position()
	if int(dataOff) < minData || int(dataOff) > size {
		d.report(diag.Warning, diag.Parsing, off, diag.NoRecovery,
			diag.Fields{"data_offset": dataOff, "expected_min": minData}, "DEFPOINTS data offset out of range")
		dataOff = uint32(minData)
	}
	_ = r.Seek(int(dataOff))

	d.points.Vertices = make([]mathutil.Vec3, 0, len(counts))
	d.points.Normals = make([]mathutil.Vec3, 0, sum)
	for i, c := range counts {
		v, err := r.Vec3()
		if err != nil {
			d.report(diag.Error, diag.Parsing, off, diag.Truncate,
				diag.Fields{"vertex": i, "num_vertices": len(counts)}, "DEFPOINTS vertex data truncated")
			return
		}
		d.points.Vertices = append(d.points.Vertices, v)
		for j := 0; j < int(c); j++ {
			n, err := r.Vec3()
			if err != nil {
				d.report(diag.Error, diag.Parsing, off, diag.Truncate,
					diag.Fields{"vertex": i, "normal": j}, "DEFPOINTS normal data truncated")
				return
			}
			d.points.Normals = append(d.points.Normals, n)
		}
	}
}

// node decodes the subtree whose first record starts at off.
func (d *decoder) node(off, depth int) Node {
	for {
		if d.cancelled() {
			return Empty{}
		}
		if off >= len(d.data) {
			return Empty{}
		}
		if depth > maxDepth {
			d.report(diag.Error, diag.Memory, off, diag.TreatAsEmpty, diag.Fields{"depth": depth}, "bsp tree too deep")
			return Empty{}
		}
		if d.visiting[off] {
			d.report(diag.Error, diag.DataIntegrity, off, diag.TreatAsEmpty, nil, "bsp offset cycle")
			return Empty{}
		}
		op, size, ok := d.header(off)
		if !ok {
			return Empty{}
		}

		switch op {
		case OpEndOfBranch:
			return Empty{}
		case OpSortNorm, OpSortNorm2:
			return d.split(op, off, size, depth)
		case OpBoundBox:
			return d.boundBox(off, size)
		case OpTmapPoly2:
			return d.single(op, off, size)
		case OpFlatPoly, OpTmapPoly:
			return d.polyRun(off)
		case OpDefPoints:
			d.report(diag.Warning, diag.Parsing, off, diag.DropRecord, nil, "repeated DEFPOINTS ignored")
		default:
			d.report(diag.Warning, diag.Parsing, off, diag.DropRecord, diag.Fields{"opcode": uint32(op)}, "unknown bsp opcode skipped")
		}
		off += size
	}
}

func (d *decoder) split(op Opcode, off, size, depth int) Node {
	r := d.record(off, size)
	s := &Split{Opcode: op, Offset: off}

	var front, back int32
	var err error
	if op == OpSortNorm {
		var point mathutil.Vec3
		var errs [8]error
		s.Normal, errs[0] = r.Vec3()
		point, errs[1] = r.Vec3()
		s.Reserved, errs[2] = r.I32()
		front, errs[3] = r.I32()
		back, errs[4] = r.I32()
		s.PreList, errs[5] = r.I32()
		s.PostList, errs[6] = r.I32()
		s.OnLine, errs[7] = r.I32()
		err = firstErr(errs[:]...)
		s.PlaneDistance = s.Normal.Dot(point)
		if err == nil && d.opts.Version >= BBoxVersion {
			s.BBox, err = r.BBox()
			s.BBoxStored = err == nil
		}
	} else {
		var e1, e2 error
		front, e1 = r.I32()
		back, e2 = r.I32()
		err = firstErr(e1, e2)
		s.Normal = mathutil.Vec3{0, 0, 1}
		if err == nil {
			s.BBox, err = r.BBox()
			s.BBoxStored = err == nil
		}
	}
	if err != nil {
		d.report(diag.Error, diag.Parsing, off, diag.TreatAsEmpty, diag.Fields{"opcode": op.String()}, "splitting record truncated")
		return Empty{}
	}
	if r.Remaining() > 0 {
		d.report(diag.Debug, diag.Parsing, off, diag.NoRecovery, diag.Fields{"residual": r.Remaining()}, "splitting record has trailing bytes")
	}

	d.visiting[off] = true
	s.Front = d.child(off, front, depth)
	s.Back = d.child(off, back, depth)
	delete(d.visiting, off)

	if !s.BBoxStored {
		s.BBox = childBounds(s.Front, s.Back)
	}
	return s
}

func (d *decoder) child(off int, rel int32, depth int) Node {
	if rel == 0 {
		return Empty{}
	}
	target := off + int(rel)
	if rel < 0 || target >= len(d.data) {
		d.report(diag.Warning, diag.DataIntegrity, off, diag.TreatAsEmpty,
			diag.Fields{"child_offset": rel, "slice_len": len(d.data)}, "bsp child offset out of range")
		return Empty{}
	}
	return d.node(target, depth+1)
}

func childBounds(children ...Node) mathutil.BoundingBox {
	box := mathutil.EmptyBox()
	found := false
	for _, c := range children {
		if b, ok := c.Bounds(); ok {
			box = box.Union(b)
			found = true
		}
	}
	if !found {
		return mathutil.UnitBox()
	}
	return box
}

func (d *decoder) boundBox(off, size int) Node {
	r := d.record(off, size)
	box, err := r.BBox()
	if err != nil {
		d.report(diag.Error, diag.Parsing, off, diag.TreatAsEmpty, nil, "BOUNDBOX record truncated")
		return Empty{}
	}
	leaf := &Leaf{BBox: box, Offset: off}
	leaf.Polygons = d.leafBody(off + size)
	return leaf
}

// leafBody collects polygon records from off until ENDOFBRANCH, corruption or the end of the slice.
func (d *decoder) leafBody(off int) []Polygon {
	var polys []Polygon
	for off < len(d.data) {
		if d.cancelled() {
			break
		}
		op, size, ok := d.header(off)
		if !ok || op == OpEndOfBranch {
			break
		}
		if op.isPolygon() {
			if p, ok := d.polygon(op, off, size); ok {
				polys = append(polys, p)
			}
		} else {
			d.report(diag.Warning, diag.Parsing, off, diag.DropRecord, diag.Fields{"opcode": op.String()}, "unexpected opcode in leaf skipped")
		}
		off += size
	}
	return polys
}

// single handles a standalone TMAPPOLY2, which is a one-polygon leaf with its own box.
func (d *decoder) single(op Opcode, off, size int) Node {
	p, box, ok := d.polygonWithBox(op, off, size)
	if !ok {
		return Empty{}
	}
	return &Leaf{BBox: box, Polygons: []Polygon{p}, Offset: off}
}

// polyRun handles polygons that appear without a BOUNDBOX preamble.
func (d *decoder) polyRun(off int) Node {
	polys := d.leafBody(off)
	if len(polys) == 0 {
		return Empty{}
	}
	box := mathutil.EmptyBox()
	for i := range polys {
		if b, ok := polys[i].Bounds(); ok {
			box = box.Union(b)
		}
	}
	d.report(diag.Info, diag.Parsing, off, diag.RecomputeBounds, diag.Fields{"polygons": len(polys)}, "polygon run without BOUNDBOX")
	return &Leaf{BBox: box, Polygons: polys, Offset: off}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
