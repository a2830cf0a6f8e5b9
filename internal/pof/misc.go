package pof

import "strings"

func decodePaths(c *chunk, m *Model) error {
	n := c.count(int64(c.u32()), 8, "paths")
	for i := 0; i < n && c.err == nil; i++ {
		p := Path{Name: c.str(MaxNameLen, "name")}
		if c.version >= gatePathParent {
			p.Parent = c.str(MaxNameLen, "parent")
		}
		nodes := c.count(int64(c.u32()), 32, "nodes")
		for j := 0; j < nodes && c.err == nil; j++ {
			node := PathNode{
				Position: c.vec(),
				Rotation: c.vec(),
				Time:     c.f32(),
			}
			node.Properties = c.str(MaxPropLen, "properties")
			if c.err != nil {
				break
			}
			p.Nodes = append(p.Nodes, node)
		}
		if len(p.Nodes) > 0 {
			p.Duration = p.Nodes[len(p.Nodes)-1].Time
		}
		p.Loop = isLoopName(p.Name)
		m.Paths = append(m.Paths, p)
	}
	return c.err
}

// isLoopName reports the "_loop" / "-loop" suffix convention for cyclic paths.
func isLoopName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "_loop") || strings.HasSuffix(lower, "-loop")
}

func decodeInsignia(c *chunk, m *Model) error {
	n := c.count(int64(c.u32()), 24, "insignia")
	for i := 0; i < n && c.err == nil; i++ {
		ins := Insignia{
			TextureIndex: c.u32(),
			Position:     c.vec(),
			Size:         c.f32(),
			Rotation:     c.f32(),
		}
		if c.err != nil {
			break
		}
		m.Insignia = append(m.Insignia, ins)
	}
	return c.err
}

func decodeAutocenter(c *chunk, m *Model) error {
	v := c.vec()
	if c.err != nil {
		return c.err
	}
	m.Autocenter = &v
	return nil
}

func decodeGlows(c *chunk, m *Model) error {
	n := c.count(int64(c.u32()), 52, "glows")
	for i := 0; i < n && c.err == nil; i++ {
		g := GlowBank{
			Position: c.vec(),
			Normal:   c.vec(),
			Radius:   c.f32(),
		}
		for k := range g.Color {
			g.Color[k] = c.f32()
		}
		g.Intensity = c.f32()
		g.TextureIndex = c.u32()
		if c.err != nil {
			break
		}
		m.Glows = append(m.Glows, g)
	}
	return c.err
}
