package pof

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const pointStride = 24

func decodeGuns(c *chunk, m *Model) error {
	m.GunPoints = decodeBanks(c, PointGun, "gun")
	return c.err
}

func decodeMissiles(c *chunk, m *Model) error {
	m.MissilePoints = decodeBanks(c, PointMissile, "missile")
	return c.err
}

func decodeBanks(c *chunk, kind PointKind, prefix string) []SpecialPoint {
	var out []SpecialPoint
	banks := c.count(int64(c.u32()), 4, "banks")
	for b := 0; b < banks && c.err == nil; b++ {
		n := c.count(int64(c.u32()), pointStride, "points")
		for i := 0; i < n && c.err == nil; i++ {
			p := SpecialPoint{
				Kind:     kind,
				Name:     fmt.Sprintf("%s_bank%02d_point%02d", prefix, b, i),
				Position: c.vec(),
				Normal:   c.vec(),
				Group:    b,
				Index:    i,
				Properties: map[string]string{
					"bank":  strconv.Itoa(b),
					"point": strconv.Itoa(i),
				},
			}
			if c.err != nil {
				break
			}
			c.flagNormal(&p)
			out = append(out, p)
		}
	}
	return out
}

// decodeDocks names every point "<bay>_pointNN" after its bay's "$name=" property. Points of bays
// without a name stay unnamed.
func decodeDocks(c *chunk, m *Model) error {
	bays := c.count(int64(c.u32()), 12, "docks")
	for d := 0; d < bays && c.err == nil; d++ {
		raw := c.str(MaxPropLen, "properties")
		props := ParseProperties(raw)

		var paths []string
		for i, n := 0, c.count(int64(c.u32()), 4, "paths"); i < n && c.err == nil; i++ {
			paths = append(paths, strconv.FormatUint(uint64(c.u32()), 10))
		}

		bay := props["name"]
		n := c.count(int64(c.u32()), pointStride, "points")
		for i := 0; i < n && c.err == nil; i++ {
			p := SpecialPoint{
				Kind:     PointDocking,
				Name:     DockPointName(bay, i),
				Position: c.vec(),
				Normal:   c.vec(),
				Group:    d,
				Index:    i,
				Properties: map[string]string{
					"dock":  strconv.Itoa(d),
					"point": strconv.Itoa(i),
				},
			}
			if c.err != nil {
				break
			}
			if bay != "" {
				p.Properties["bay"] = bay
			}
			if len(paths) > 0 {
				p.Properties["paths"] = strings.Join(paths, ",")
			}
			copyProps(p.Properties, props, "name")
			c.flagNormal(&p)
			m.DockingPoints = append(m.DockingPoints, p)
		}
	}
	return c.err
}

// DockPointName is the name of point i of a docking bay. An empty bay gives an empty name.
func DockPointName(bay string, i int) string {
	if bay == "" {
		return ""
	}
	return fmt.Sprintf("%s_point%02d", bay, i)
}

func decodeThrusters(c *chunk, m *Model) error {
	thrusters := c.count(int64(c.u32()), 4, "thrusters")
	for t := 0; t < thrusters && c.err == nil; t++ {
		n := c.count(int64(c.u32()), 28, "glows")
		var props map[string]string
		if c.version >= gateThrusterProps {
			props = ParseProperties(c.str(MaxPropLen, "properties"))
		}
		for i := 0; i < n && c.err == nil; i++ {
			p := SpecialPoint{
				Kind:     PointThruster,
				Name:     fmt.Sprintf("thruster%02d_glow%02d", t, i),
				Position: c.vec(),
				Normal:   c.vec(),
				Group:    t,
				Index:    i,
			}
			radius := c.f32()
			if c.err != nil {
				break
			}
			p.Properties = map[string]string{
				"radius": strconv.FormatFloat(float64(radius), 'g', -1, 32),
			}
			copyProps(p.Properties, props)
			c.flagNormal(&p)
			m.ThrusterPoints = append(m.ThrusterPoints, p)
		}
	}
	return c.err
}

func decodeEyes(c *chunk, m *Model) error {
	n := c.count(int64(c.u32()), 28, "eyes")
	for i := 0; i < n && c.err == nil; i++ {
		sub := c.i32()
		p := SpecialPoint{
			Kind:     PointEye,
			Name:     fmt.Sprintf("eye%02d", i),
			Position: c.vec(),
			Normal:   c.vec(),
			Group:    int(sub),
			Index:    i,
			Properties: map[string]string{
				"subobject": strconv.Itoa(int(sub)),
			},
		}
		if c.err != nil {
			break
		}
		c.flagNormal(&p)
		m.EyePoints = append(m.EyePoints, p)
	}
	return c.err
}

// decodeSpecials reads SPCL records. They carry a radius instead of a normal.
func decodeSpecials(c *chunk, m *Model) error {
	n := c.count(int64(c.u32()), 24, "specials")
	for i := 0; i < n && c.err == nil; i++ {
		name := c.str(MaxNameLen, "name")
		props := ParseProperties(c.str(MaxPropLen, "properties"))
		p := SpecialPoint{
			Kind:     PointSpecial,
			Name:     name,
			Position: c.vec(),
			Index:    i,
		}
		radius := c.f32()
		if c.err != nil {
			break
		}
		p.Properties = map[string]string{
			"radius": strconv.FormatFloat(float64(radius), 'g', -1, 32),
		}
		copyProps(p.Properties, props)
		m.SpecialPoints = append(m.SpecialPoints, p)
	}
	return c.err
}

// copyProps adds src entries that dst does not have yet, skipping the listed keys.
func copyProps(dst, src map[string]string, skip ...string) {
	for k, v := range src {
		if _, ok := dst[k]; ok || slices.Contains(skip, k) {
			continue
		}
		dst[k] = v
	}
}
