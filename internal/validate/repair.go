package validate

import (
	"fmt"

	"github.com/chewxy/math32"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/pof"
)

// Repair returns a copy of m with every recovery the validator can name applied. m is not modified.
// Lowering works on the repaired copy, so every normal it sees is unit length.
func Repair(m *pof.Model) *pof.Model {
	out := clone(m)

	renumber(out)
	reparent(out)

	for i := range out.SubObjects {
		so := &out.SubObjects[i]
		so.Radius = math32.Abs(so.Radius)
		if so.Name == "" {
			so.Name = fmt.Sprintf("subobject%02d", so.Number)
		}
		if !so.BBox.Valid() {
			so.BBox = repairBox(so.BBox, so.Polygons())
		}
		if so.Tree != nil {
			so.Tree = repairTree(so.Tree, len(out.Textures))
		}
	}

	if out.HasHeader {
		repairHeader(out)
	}

	for i := range out.Insignia {
		if !textureOK(out.Insignia[i].TextureIndex, len(out.Textures)) {
			out.Insignia[i].TextureIndex = bsp.Untextured
		}
	}
	for i := range out.Glows {
		g := &out.Glows[i]
		if !textureOK(g.TextureIndex, len(out.Textures)) {
			g.TextureIndex = bsp.Untextured
		}
		g.Normal = mathutil.Normalize(g.Normal)
	}

	for _, group := range [][]pof.SpecialPoint{out.GunPoints, out.MissilePoints, out.ThrusterPoints, out.EyePoints} {
		for i := range group {
			group[i].Normal = mathutil.Normalize(group[i].Normal)
		}
	}
	for i := range out.DockingPoints {
		p := &out.DockingPoints[i]
		p.Normal = mathutil.Normalize(p.Normal)
		if p.Name == "" {
			p.Name = pof.DockPointName(fmt.Sprintf("dock%02d", p.Group), p.Index)
		}
	}
	for i := range out.SpecialPoints {
		if out.SpecialPoints[i].Name == "" {
			out.SpecialPoints[i].Name = fmt.Sprintf("special%02d", out.SpecialPoints[i].Index)
		}
	}
	for i := range out.EyePoints {
		p := &out.EyePoints[i]
		if p.Group >= 0 {
			if _, ok := out.SubObjectByNumber(int32(p.Group)); !ok {
				p.Group = -1
				p.Properties["subobject"] = "-1"
			}
		}
	}

	if out.Shield != nil {
		kept := out.Shield.Polygons[:0]
		for _, p := range out.Shield.Polygons {
			if len(p.Indices) >= 3 {
				p.Normal = mathutil.Normalize(p.Normal)
				kept = append(kept, p)
			}
		}
		out.Shield.Polygons = kept
		if out.Shield.Tree != nil {
			out.Shield.Tree = repairTree(out.Shield.Tree, len(out.Textures))
		}
	}
	return out
}

func textureOK(idx uint32, n int) bool {
	return idx == bsp.Untextured || int64(idx) < int64(n)
}

// renumber gives duplicate and negative subobject numbers fresh values above the current maximum.
func renumber(m *pof.Model) {
	next := int32(0)
	for _, so := range m.SubObjects {
		if so.Number >= next {
			next = so.Number + 1
		}
	}
	seen := map[int32]bool{}
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		if so.Number < 0 || seen[so.Number] {
			so.Number = next
			next++
		}
		seen[so.Number] = true
	}
}

// reparent attaches subobjects with missing parents, self parents or parent cycles to the root.
func reparent(m *pof.Model) {
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		if so.Parent == -1 {
			continue
		}
		if _, ok := m.SubObjectByNumber(so.Parent); !ok || so.Parent == so.Number {
			so.Parent = -1
		}
	}
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		cur := so.Parent
		for steps := 0; cur != -1; steps++ {
			if cur == so.Number || steps > len(m.SubObjects) {
				so.Parent = -1
				break
			}
			p, _ := m.SubObjectByNumber(cur)
			cur = p.Parent
		}
	}
}

func repairHeader(m *pof.Model) {
	h := &m.Header
	h.Mass = math32.Abs(h.Mass)
	for i := range h.CrossSections {
		h.CrossSections[i].Depth = math32.Abs(h.CrossSections[i].Depth)
		h.CrossSections[i].Radius = math32.Abs(h.CrossSections[i].Radius)
	}
	h.NumSubObjects = int32(len(m.SubObjects))

	box := h.BBox
	if !box.Valid() {
		box = mathutil.EmptyBox()
	}
	for i := range m.SubObjects {
		so := &m.SubObjects[i]
		if so.BBox.Valid() {
			box = box.Union(so.BBox.Translate(worldOffset(m, so)))
		}
	}
	if !box.Valid() {
		box = mathutil.UnitBox()
	}
	h.BBox = box

	if !(h.MaxRadius > 0) {
		h.MaxRadius = math32.Max(box.Min.Len(), box.Max.Len())
	}
}

func worldOffset(m *pof.Model, so *pof.SubObject) mathutil.Vec3 {
	off := so.Offset
	cur := so.Parent
	for steps := 0; cur != -1 && steps < len(m.SubObjects); steps++ {
		p, ok := m.SubObjectByNumber(cur)
		if !ok {
			break
		}
		off = off.Add(p.Offset)
		cur = p.Parent
	}
	return off
}

func repairBox(b mathutil.BoundingBox, polys []bsp.Polygon) mathutil.BoundingBox {
	box := mathutil.EmptyBox()
	for i := range polys {
		if pb, ok := polys[i].Bounds(); ok {
			box = box.Union(pb)
		}
	}
	if box.Valid() {
		return box
	}
	if mathutil.IsFinite(b.Min) && mathutil.IsFinite(b.Max) {
		return b.Normalized()
	}
	return mathutil.UnitBox()
}

// repairTree normalises normals, remaps bad texture indices, drops degenerate polygons and fixes boxes.
// Nodes are edited in place, so callers must pass a cloned tree.
func repairTree(n bsp.Node, numTextures int) bsp.Node {
	switch node := n.(type) {
	case *bsp.Split:
		node.Front = repairTree(node.Front, numTextures)
		node.Back = repairTree(node.Back, numTextures)
		if !mathutil.IsUnit(node.Normal) {
			l := node.Normal.Len()
			if l > mathutil.Epsilon {
				node.Normal = node.Normal.Mul(1 / l)
				node.PlaneDistance /= l
			} else {
				node.Normal = mathutil.Vec3{0, 0, 1}
				node.PlaneDistance = 0
			}
		}
		if !node.BBox.Valid() {
			node.BBox = childBox(node.Front, node.Back)
		}
		return node
	case *bsp.Leaf:
		kept := node.Polygons[:0]
		for _, p := range node.Polygons {
			if len(p.Vertices) < 3 {
				continue
			}
			for i, v := range p.Vertices {
				if !mathutil.IsFinite(v) {
					p.Vertices[i] = mathutil.Vec3{}
				}
			}
			if !mathutil.IsUnit(p.Normal) {
				p.Normal = faceNormal(p)
				p.PlaneDistance = p.Normal.Dot(p.Vertices[0])
			}
			for i := range p.VertexNormals {
				if !mathutil.IsUnit(p.VertexNormals[i]) {
					if mathutil.IsZero(p.VertexNormals[i]) {
						p.VertexNormals[i] = p.Normal
					} else {
						p.VertexNormals[i] = mathutil.Normalize(p.VertexNormals[i])
					}
				}
			}
			if !textureOK(p.TextureIndex, numTextures) {
				p.TextureIndex = defaultTexture(numTextures)
			}
			kept = append(kept, p)
		}
		node.Polygons = kept
		if !node.BBox.Valid() {
			node.BBox = repairBox(node.BBox, node.Polygons)
		}
		return node
	}
	return n
}

// defaultTexture is the first texture, or untextured when the model has none.
func defaultTexture(numTextures int) uint32 {
	if numTextures > 0 {
		return 0
	}
	return bsp.Untextured
}

// faceNormal normalises the stored normal, falling back to the winding normal when it is zero.
func faceNormal(p bsp.Polygon) mathutil.Vec3 {
	if !mathutil.IsZero(p.Normal) {
		return mathutil.Normalize(p.Normal)
	}
	n := p.Vertices[1].Sub(p.Vertices[0]).Cross(p.Vertices[2].Sub(p.Vertices[0]))
	if mathutil.IsZero(n) {
		return mathutil.Vec3{0, 0, 1}
	}
	return mathutil.Normalize(n)
}

func childBox(children ...bsp.Node) mathutil.BoundingBox {
	box := mathutil.EmptyBox()
	found := false
	for _, c := range children {
		if b, ok := c.Bounds(); ok && b.Valid() {
			box = box.Union(b)
			found = true
		}
	}
	if !found {
		return mathutil.UnitBox()
	}
	return box
}

// clone deep-copies the parts of a model that Repair edits.
func clone(m *pof.Model) *pof.Model {
	out := *m
	out.Textures = append([]string(nil), m.Textures...)
	out.SubObjects = make([]pof.SubObject, len(m.SubObjects))
	for i, so := range m.SubObjects {
		c := so
		c.BSPData = append([]byte(nil), so.BSPData...)
		if so.Tree != nil {
			c.Tree = bsp.Clone(so.Tree)
		}
		out.SubObjects[i] = c
	}
	out.Header.CrossSections = append([]pof.CrossSection(nil), m.Header.CrossSections...)
	out.Header.Lights = append([]pof.Light(nil), m.Header.Lights...)
	out.GunPoints = clonePoints(m.GunPoints)
	out.MissilePoints = clonePoints(m.MissilePoints)
	out.DockingPoints = clonePoints(m.DockingPoints)
	out.ThrusterPoints = clonePoints(m.ThrusterPoints)
	out.EyePoints = clonePoints(m.EyePoints)
	out.SpecialPoints = clonePoints(m.SpecialPoints)
	out.Insignia = append([]pof.Insignia(nil), m.Insignia...)
	out.Glows = append([]pof.GlowBank(nil), m.Glows...)
	out.Paths = append([]pof.Path(nil), m.Paths...)
	if m.Shield != nil {
		s := *m.Shield
		s.Vertices = append([]mathutil.Vec3(nil), m.Shield.Vertices...)
		s.Normals = append([]mathutil.Vec3(nil), m.Shield.Normals...)
		s.Polygons = make([]pof.ShieldPolygon, len(m.Shield.Polygons))
		for i, p := range m.Shield.Polygons {
			s.Polygons[i] = pof.ShieldPolygon{Normal: p.Normal, Indices: append([]uint32(nil), p.Indices...)}
		}
		if m.Shield.Tree != nil {
			s.Tree = bsp.Clone(m.Shield.Tree)
		}
		out.Shield = &s
	}
	if m.Autocenter != nil {
		ac := *m.Autocenter
		out.Autocenter = &ac
	}
	return &out
}

func clonePoints(in []pof.SpecialPoint) []pof.SpecialPoint {
	if in == nil {
		return nil
	}
	out := make([]pof.SpecialPoint, len(in))
	for i, p := range in {
		c := p
		c.Properties = make(map[string]string, len(p.Properties))
		for k, v := range p.Properties {
			c.Properties[k] = v
		}
		out[i] = c
	}
	return out
}
