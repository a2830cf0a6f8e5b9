package scene

import (
	"wcs-converter/internal/mesh"
)

// Flatten merges the meshes under n into one model-space mesh, joining surfaces by texture.
// Subtrees rooted at nodes rejected by keep are skipped; a nil keep keeps everything.
func Flatten(n *Node, name string, keep func(*Node) bool) *mesh.Mesh {
	out := &mesh.Mesh{Name: name}
	var visit func(*Node)
	visit = func(c *Node) {
		if keep != nil && !keep(c) {
			return
		}
		if c.Mesh != nil {
			appendTransformed(out, c.Mesh, c)
		}
		for _, child := range c.Children {
			visit(child)
		}
	}
	visit(n)
	return out
}

func appendTransformed(dst *mesh.Mesh, src *mesh.Mesh, n *Node) {
	rot := n.World.Mat3()
	for i := range src.Surfaces {
		s := &src.Surfaces[i]
		var target *mesh.Surface
		for j := range dst.Surfaces {
			if dst.Surfaces[j].Texture == s.Texture {
				target = &dst.Surfaces[j]
				break
			}
		}
		if target == nil {
			dst.Surfaces = append(dst.Surfaces, mesh.Surface{Texture: s.Texture})
			target = &dst.Surfaces[len(dst.Surfaces)-1]
		}
		base := uint32(len(target.Vertices))
		for _, v := range s.Vertices {
			v.Position = n.World.Mul4x1(v.Position.Vec4(1)).Vec3()
			v.Normal = rot.Mul3x1(v.Normal)
			target.Vertices = append(target.Vertices, v)
		}
		for _, idx := range s.Indices {
			target.Indices = append(target.Indices, idx+base)
		}
	}
}

// DetailRoot returns the subobject node of detail level 0, or nil.
func (s *Scene) DetailRoot() *Node {
	var found *Node
	s.Root.Walk(func(n *Node) {
		if found == nil && n.Kind == KindSubObject && n.Detail == 0 {
			found = n
		}
	})
	return found
}
