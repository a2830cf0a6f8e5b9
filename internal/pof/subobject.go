package pof

import (
	"github.com/pkg/errors"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/diag"
)

func decodeSubObject(c *chunk, m *Model) error {
	so := SubObject{}
	so.Number = c.i32()
	so.Radius = c.f32()
	so.Parent = c.i32()
	so.Offset = c.vec()
	so.GeometricCenter = c.vec()
	so.BBox = c.box()
	so.Name = c.str(MaxNameLen, "name")
	so.Properties = c.str(MaxPropLen, "properties")
	movement := c.i32()
	axis := c.i32()
	_ = c.i32() // reserved
	size := c.u32()
	if c.err != nil {
		so.Tree = bsp.Empty{}
		m.SubObjects = append(m.SubObjects, so)
		return c.err
	}

	so.Movement = movementType(c, movement)
	so.Axis = movementAxis(c, axis)

	so.BSPOffset = c.r.Position()
	if uint64(size) > uint64(c.r.Remaining()) {
		c.report(diag.Warning, diag.Parsing, diag.Truncate,
			diag.Fields{"bsp_size": size, "remaining": c.r.Remaining()}, "bsp size exceeds chunk")
		size = uint32(c.r.Remaining())
	}
	so.BSPSize = size
	raw, _ := c.r.Bytes(int(size))
	so.BSPData = append([]byte(nil), raw...)

	if c.opts.SkipBSP {
		m.SubObjects = append(m.SubObjects, so)
		return nil
	}
	res, err := bsp.Reconstruct(c.ctx, so.BSPData, bsp.Options{
		Version:    c.version,
		Sink:       c.scope.Sink,
		ChunkID:    uint32(c.id),
		BaseOffset: c.offset + int64(so.BSPOffset),
	})
	if err != nil {
		return errors.Wrapf(err, "pof: subobject %d", so.Number)
	}
	so.Tree, so.Points, so.Stats = res.Root, res.Points, res.Stats
	m.SubObjects = append(m.SubObjects, so)
	return nil
}

func movementType(c *chunk, v int32) MovementType {
	switch v {
	case -1:
		return MovementStatic
	case 0:
		return MovementTranslation
	case 1:
		return MovementRotation
	case 2, 3:
		return MovementComplex
	}
	c.report(diag.Warning, diag.DataIntegrity, diag.MapToSentinel, diag.Fields{"movement_type": v}, "unknown movement type")
	return MovementStatic
}

// movementAxis follows the source ordering, where 1 is Z and 2 is Y.
func movementAxis(c *chunk, v int32) MovementAxis {
	switch v {
	case -1:
		return AxisNone
	case 0:
		return AxisX
	case 1:
		return AxisZ
	case 2:
		return AxisY
	}
	c.report(diag.Warning, diag.DataIntegrity, diag.MapToSentinel, diag.Fields{"movement_axis": v}, "unknown movement axis")
	return AxisNone
}
