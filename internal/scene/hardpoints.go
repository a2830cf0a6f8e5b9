package scene

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/pof"
)

// forward is the axis a hardpoint node's rotation turns onto its normal.
var forward = mathutil.Vec3{0, 0, 1}

var groupNames = map[pof.PointKind]string{
	pof.PointGun:      "gun_points",
	pof.PointMissile:  "missile_points",
	pof.PointDocking:  "dock_points",
	pof.PointThruster: "thruster_points",
	pof.PointEye:      "eye_points",
	pof.PointSpecial:  "special_points",
}

// facing is the rotation taking forward onto normal; zero normals keep the identity.
func facing(normal mathutil.Vec3) mgl32.Quat {
	if mathutil.IsZero(normal) {
		return identity()
	}
	n := mathutil.Normalize(normal)
	if n.Dot(forward) < -1+1e-6 {
		return mgl32.QuatRotate(mgl32.DegToRad(180), mathutil.Vec3{0, 1, 0})
	}
	return mgl32.QuatBetweenVectors(forward, n)
}

func pointNode(p *pof.SpecialPoint) *Node {
	n := &Node{
		Name:      p.Name,
		Kind:      KindHardpoint,
		Offset:    p.Position,
		Rotation:  facing(p.Normal),
		Number:    -1,
		Detail:    -1,
		PointKind: p.Kind.String(),
		Normal:    p.Normal,
	}
	if len(p.Properties) > 0 {
		n.Properties = make(map[string]string, len(p.Properties))
		for k, v := range p.Properties {
			n.Properties[k] = v
		}
	}
	return n
}

// addHardpoints hangs every special point under a per-kind group node of the root. Eye points
// that name an existing subobject are attached to that subobject instead, in its local space.
func addHardpoints(root *Node, m *pof.Model, nodes map[int32]*Node) {
	groups := map[pof.PointKind]*Node{}
	for _, p := range m.Points() {
		n := pointNode(&p)
		if p.Kind == pof.PointEye {
			if sub, err := strconv.Atoi(p.Properties["subobject"]); err == nil {
				if parent, ok := nodes[int32(sub)]; ok {
					parent.Children = append(parent.Children, n)
					continue
				}
			}
		}
		g, ok := groups[p.Kind]
		if !ok {
			g = &Node{Name: groupNames[p.Kind], Kind: KindGroup, Number: -1, Detail: -1, Rotation: identity()}
			groups[p.Kind] = g
			root.Children = append(root.Children, g)
		}
		g.Children = append(g.Children, n)
	}
}
