package mesh

import (
	"slices"

	"wcs-converter/internal/mathutil"
)

// Components groups the triangles of s into components connected through shared corner
// positions, largest first. Positions are compared exactly, so polygons built from the same
// DEFPOINTS entries connect even though each polygon owns its vertices. Each component lists
// triangle indices in ascending order.
func Components(s *Surface) [][]int {
	n := s.TriangleCount()
	if n == 0 {
		return nil
	}
	byCorner := make(map[mathutil.Vec3][]int)
	for t := 0; t < n; t++ {
		for k := 0; k < 3; k++ {
			p := s.Vertices[s.Indices[3*t+k]].Position
			byCorner[p] = append(byCorner[p], t)
		}
	}

	visited := make([]bool, n)
	var comps [][]int
	for t := 0; t < n; t++ {
		if visited[t] {
			continue
		}
		var comp []int
		stack := []int{t}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			comp = append(comp, cur)
			for k := 0; k < 3; k++ {
				for _, nb := range byCorner[s.Vertices[s.Indices[3*cur+k]].Position] {
					if !visited[nb] {
						stack = append(stack, nb)
					}
				}
			}
		}
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	slices.SortStableFunc(comps, func(a, b []int) int { return len(b) - len(a) })
	return comps
}

// Subset returns a surface holding only the given triangles of s.
func Subset(s *Surface, tris []int) Surface {
	out := Surface{Texture: s.Texture, Vertices: s.Vertices, Indices: make([]uint32, 0, 3*len(tris))}
	for _, t := range tris {
		out.Indices = append(out.Indices, s.Indices[3*t], s.Indices[3*t+1], s.Indices[3*t+2])
	}
	return compact(out)
}
