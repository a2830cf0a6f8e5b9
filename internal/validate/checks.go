package validate

import (
	"wcs-converter/internal/bsp"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/pof"
)

func (v *validator) checkVersion() {
	fields := diag.Fields{"declared": v.m.DeclaredVersion, "using": int32(v.m.Version)}
	switch v.m.Compatibility {
	case pof.VersionTooOld:
		v.report(diag.Error, diag.Compatibility, diag.ClosestVersion, fields, "version below minimum compatible")
	case pof.VersionTooNew:
		v.report(diag.Warning, diag.Compatibility, diag.ClosestVersion, fields, "version newer than maximum supported")
	case pof.VersionClosest:
		v.report(diag.Warning, diag.Compatibility, diag.ClosestVersion, fields, "unrecognised version")
	}
}

func (v *validator) checkHeader() {
	if !v.m.HasHeader {
		return
	}
	h := &v.m.Header
	if !(h.MaxRadius > 0) {
		v.report(diag.Error, diag.Validation, diag.RecomputeBounds, diag.Fields{"field": "max_radius", "value": h.MaxRadius}, "max radius must be positive")
	}
	if h.NumSubObjects < 0 {
		v.report(diag.Error, diag.Validation, diag.NoRecovery, diag.Fields{"field": "num_subobjects", "value": h.NumSubObjects}, "negative subobject count")
	}
	if int(h.NumSubObjects) != len(v.m.SubObjects) {
		v.report(diag.Error, diag.DataIntegrity, diag.NoRecovery,
			diag.Fields{"declared": h.NumSubObjects, "decoded": len(v.m.SubObjects)}, "subobject count mismatch")
	}
	if !h.BBox.Valid() {
		v.report(diag.Error, diag.Validation, diag.RecomputeBounds, diag.Fields{"min": h.BBox.Min, "max": h.BBox.Max}, "header bounding box malformed")
	}
	if h.Mass < 0 {
		v.report(diag.Warning, diag.Validation, diag.UseAbsoluteValue, diag.Fields{"field": "mass", "value": h.Mass}, "negative mass")
	}
	for i, cs := range h.CrossSections {
		if cs.Depth < 0 || cs.Radius < 0 {
			v.report(diag.Warning, diag.Validation, diag.UseAbsoluteValue, diag.Fields{"cross_section": i}, "negative cross section")
		}
	}
	for i, d := range h.DetailLevels {
		if d >= 0 && !v.hasSubObject(d) {
			v.report(diag.Warning, diag.DataIntegrity, diag.NoRecovery, diag.Fields{"detail_level": i, "subobject": d}, "detail level references missing subobject")
		}
	}
	for i, d := range h.Debris {
		if d >= 0 && !v.hasSubObject(d) {
			v.report(diag.Warning, diag.DataIntegrity, diag.NoRecovery, diag.Fields{"debris": i, "subobject": d}, "debris references missing subobject")
		}
	}
}

func (v *validator) hasSubObject(n int32) bool {
	_, ok := v.m.SubObjectByNumber(n)
	return ok
}

func (v *validator) checkSubObjects() {
	seen := make(map[int32]bool, len(v.m.SubObjects))
	for i := range v.m.SubObjects {
		so := &v.m.SubObjects[i]
		fields := diag.Fields{"subobject": so.Number, "name": so.Name}

		if so.Number < 0 {
			v.report(diag.Error, diag.Validation, diag.Renumber, fields, "negative subobject number")
		} else if seen[so.Number] {
			v.report(diag.Error, diag.Validation, diag.Renumber, fields, "duplicate subobject number")
		}
		seen[so.Number] = true

		switch {
		case so.Parent == so.Number:
			v.report(diag.Error, diag.Validation, diag.AttachToRoot, fields, "subobject is its own parent")
		case so.Parent != -1 && !v.hasSubObject(so.Parent):
			v.report(diag.Error, diag.Validation, diag.AttachToRoot, diag.Fields{"subobject": so.Number, "parent": so.Parent}, "parent subobject missing")
		case so.Parent != -1 && v.inCycle(so):
			v.report(diag.Error, diag.Validation, diag.AttachToRoot, fields, "subobject parent cycle")
		}

		if so.Radius < 0 {
			v.report(diag.Warning, diag.Validation, diag.UseAbsoluteValue, diag.Fields{"subobject": so.Number, "value": so.Radius}, "negative subobject radius")
		}
		if int(so.BSPSize) != len(so.BSPData) {
			v.report(diag.Warning, diag.DataIntegrity, diag.Truncate, diag.Fields{"subobject": so.Number, "bsp_size": so.BSPSize}, "bsp size does not match payload")
		}
		if so.Name == "" {
			v.report(diag.Warning, diag.Validation, diag.SynthesiseName, fields, "subobject has no name")
		}
		if !so.BBox.Valid() {
			v.report(diag.Warning, diag.Validation, diag.RecomputeBounds, fields, "subobject bounding box malformed")
		} else if v.m.HasHeader && v.m.Header.BBox.Valid() && !v.m.Header.BBox.ContainsBox(so.BBox.Translate(v.worldOffset(so)), mathutil.UnitTolerance) {
			v.report(diag.Warning, diag.Validation, diag.RecomputeBounds, fields, "subobject bounding box outside header bounding box")
		}
	}
}

// inCycle reports whether following parents from so returns to so.
func (v *validator) inCycle(so *pof.SubObject) bool {
	cur := so.Parent
	for steps := 0; steps <= len(v.m.SubObjects); steps++ {
		if cur == -1 {
			return false
		}
		if cur == so.Number {
			return true
		}
		p, ok := v.m.SubObjectByNumber(cur)
		if !ok {
			return false
		}
		cur = p.Parent
	}
	return true
}

// worldOffset sums the offsets up the parent chain, stopping at broken links.
func (v *validator) worldOffset(so *pof.SubObject) mathutil.Vec3 {
	off := so.Offset
	cur := so.Parent
	for steps := 0; cur != -1 && steps < len(v.m.SubObjects); steps++ {
		p, ok := v.m.SubObjectByNumber(cur)
		if !ok || p.Number == so.Number {
			break
		}
		off = off.Add(p.Offset)
		cur = p.Parent
	}
	return off
}

func (v *validator) checkGeometry() {
	for i := range v.m.SubObjects {
		so := &v.m.SubObjects[i]
		if so.Tree == nil {
			continue
		}
		bsp.Walk(so.Tree, func(n bsp.Node, depth int) bool {
			switch node := n.(type) {
			case *bsp.Split:
				if !mathutil.IsUnit(node.Normal) {
					v.report(diag.Warning, diag.Validation, diag.NormaliseVector,
						diag.Fields{"subobject": so.Number, "length": node.Normal.Len()}, "splitting plane normal not unit length")
				}
				if !node.BBox.Valid() {
					v.report(diag.Warning, diag.Validation, diag.RecomputeBounds, diag.Fields{"subobject": so.Number}, "splitting node bounding box malformed")
				}
			case *bsp.Leaf:
				for j := range node.Polygons {
					v.checkPolygon(so, &node.Polygons[j])
				}
			}
			return true
		})
	}
}

func (v *validator) checkPolygon(so *pof.SubObject, p *bsp.Polygon) {
	if len(p.Vertices) < 3 {
		v.report(diag.Error, diag.Validation, diag.DropRecord, diag.Fields{"subobject": so.Number, "num_vertices": len(p.Vertices)}, "polygon has fewer than 3 vertices")
		return
	}
	if !mathutil.IsUnit(p.Normal) {
		v.report(diag.Warning, diag.Validation, diag.NormaliseVector,
			diag.Fields{"subobject": so.Number, "length": p.Normal.Len()}, "polygon normal not unit length")
	}
	for _, vert := range p.Vertices {
		if !mathutil.IsFinite(vert) {
			v.report(diag.Error, diag.DataIntegrity, diag.SubstituteZero, diag.Fields{"subobject": so.Number}, "non-finite vertex")
			break
		}
	}
}

func (v *validator) textureOK(idx uint32) bool {
	return idx == bsp.Untextured || int64(idx) < int64(len(v.m.Textures))
}

func (v *validator) checkTextureRefs() {
	for i := range v.m.SubObjects {
		so := &v.m.SubObjects[i]
		for _, p := range so.Polygons() {
			if !v.textureOK(p.TextureIndex) {
				v.report(diag.Error, diag.Validation, diag.UseDefaultTexture,
					diag.Fields{"subobject": so.Number, "texture_index": p.TextureIndex, "num_textures": len(v.m.Textures)}, "texture index out of range")
			}
		}
	}
	for i, ins := range v.m.Insignia {
		if !v.textureOK(ins.TextureIndex) {
			v.report(diag.Error, diag.Validation, diag.MapToSentinel, diag.Fields{"insignia": i, "texture_index": ins.TextureIndex}, "insignia texture index out of range")
		}
	}
	for i, g := range v.m.Glows {
		if !v.textureOK(g.TextureIndex) {
			v.report(diag.Error, diag.Validation, diag.MapToSentinel, diag.Fields{"glow": i, "texture_index": g.TextureIndex}, "glow texture index out of range")
		}
	}
}

func (v *validator) checkPoints() {
	for _, group := range [][]pof.SpecialPoint{v.m.GunPoints, v.m.MissilePoints} {
		for _, p := range group {
			if !mathutil.InUnitRange(p.Normal) {
				v.report(diag.Warning, diag.Validation, diag.NormaliseVector, diag.Fields{"point": p.Name}, "weapon point normal outside [-1,1]")
			}
		}
	}
	for _, p := range v.m.DockingPoints {
		if p.Name == "" {
			v.report(diag.Warning, diag.Validation, diag.SynthesiseName, diag.Fields{"dock": p.Group, "point": p.Index}, "docking point has no name")
		}
	}
	for _, p := range v.m.SpecialPoints {
		if p.Name == "" {
			v.report(diag.Warning, diag.Validation, diag.SynthesiseName, diag.Fields{"special": p.Index}, "special point has no name")
		}
	}
	for _, p := range v.m.EyePoints {
		if p.Group >= 0 && !v.hasSubObject(int32(p.Group)) {
			v.report(diag.Warning, diag.DataIntegrity, diag.AttachToRoot, diag.Fields{"point": p.Name, "subobject": p.Group}, "eye references missing subobject")
		}
	}
}

func (v *validator) checkPaths() {
	for _, p := range v.m.Paths {
		for i := 1; i < len(p.Nodes); i++ {
			if p.Nodes[i].Time < p.Nodes[i-1].Time {
				v.report(diag.Warning, diag.Validation, diag.NoRecovery, diag.Fields{"path": p.Name, "node": i}, "path node times decrease")
				break
			}
		}
	}
}

func (v *validator) checkShield() {
	if v.m.Shield == nil {
		return
	}
	for i, p := range v.m.Shield.Polygons {
		if len(p.Indices) < 3 {
			v.report(diag.Warning, diag.Validation, diag.DropRecord, diag.Fields{"shield_polygon": i}, "shield polygon has fewer than 3 vertices")
		}
	}
}
