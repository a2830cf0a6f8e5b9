package pof

import "wcs-converter/internal/diag"

func decodeHeader(c *chunk, m *Model) error {
	h := emptyHeader()
	defer func() {
		m.Header = h
		m.HasHeader = true
	}()

	h.MaxRadius = c.f32()
	h.ObjectFlags = c.u32()
	h.NumSubObjects = c.i32()
	h.BBox = c.box()

	readSlots(c, h.DetailLevels[:], "detail_levels")
	readSlots(c, h.Debris[:], "debris")
	if c.err != nil {
		return c.err
	}

	if c.version >= gateMass {
		h.Mass = c.f32()
		h.MassCenter = c.vec()
		for i := range h.MomentOfInertia {
			h.MomentOfInertia[i] = c.vec()
		}
	}

	if c.version >= gateCrossSections {
		n := c.i32()
		// -1 is how the exporter writes "no cross sections".
		if n != -1 {
			for i, cnt := 0, c.count(int64(n), 8, "cross_sections"); i < cnt && c.err == nil; i++ {
				h.CrossSections = append(h.CrossSections, CrossSection{Depth: c.f32(), Radius: c.f32()})
			}
		}
	}

	if c.version >= gateLights {
		for i, cnt := 0, c.count(int64(c.i32()), 16, "lights"); i < cnt && c.err == nil; i++ {
			h.Lights = append(h.Lights, Light{Position: c.vec(), Type: c.u32()})
		}
	}
	return c.err
}

// readSlots fills a fixed -1 padded index table from a count-prefixed list.
func readSlots(c *chunk, slots []int32, field string) {
	n := c.count(int64(c.i32()), 4, field)
	excess := 0
	for i := 0; i < n && c.err == nil; i++ {
		v := c.i32()
		if i < len(slots) {
			slots[i] = v
		} else {
			excess++
		}
	}
	if excess > 0 {
		c.report(diag.Warning, diag.DataIntegrity, diag.Truncate,
			diag.Fields{"field": field, "max": len(slots), "dropped": excess}, "too many entries")
	}
}

func decodeTextures(c *chunk, m *Model) error {
	n := c.count(int64(c.u32()), 4, "textures")
	m.Textures = make([]string, 0, n)
	for i := 0; i < n; i++ {
		s := c.str(0, "texture")
		if c.err != nil {
			break
		}
		m.Textures = append(m.Textures, s)
	}
	return c.err
}
