package bsp

// Visitor is called for each node in pre-order. Returning false skips the node's children.
type Visitor func(n Node, depth int) bool

// Walk visits root and its descendants in pre-order, front before back.
func Walk(root Node, fn Visitor) {
	walk(root, 0, fn)
}

func walk(n Node, depth int, fn Visitor) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	if s, ok := n.(*Split); ok {
		walk(s.Front, depth+1, fn)
		walk(s.Back, depth+1, fn)
	}
}

// Polygons returns every leaf polygon in traversal order.
func Polygons(root Node) []Polygon {
	var out []Polygon
	Walk(root, func(n Node, _ int) bool {
		if l, ok := n.(*Leaf); ok {
			out = append(out, l.Polygons...)
		}
		return true
	})
	return out
}

type Stats struct {
	VertexCount     int `json:"vertex_count"`
	NormalCount     int `json:"normal_count"`
	PolygonCount    int `json:"polygon_count"`
	LeafCount       int `json:"leaf_count"`
	SplitCount      int `json:"split_count"`
	EmptyCount      int `json:"empty_count"`
	MaxDepth        int `json:"max_depth"`
	DroppedPolygons int `json:"dropped_polygons"`
}

func ComputeStats(root Node, points *DefPoints, dropped int) Stats {
	st := Stats{DroppedPolygons: dropped}
	if points != nil {
		st.VertexCount = len(points.Vertices)
		st.NormalCount = len(points.Normals)
	}
	Walk(root, func(n Node, depth int) bool {
		if depth > st.MaxDepth {
			st.MaxDepth = depth
		}
		switch v := n.(type) {
		case *Split:
			st.SplitCount++
		case *Leaf:
			st.LeafCount++
			st.PolygonCount += len(v.Polygons)
		default:
			st.EmptyCount++
		}
		return true
	})
	return st
}

// Clone deep-copies a tree so that a repaired copy can be edited without touching the decoded model.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Split:
		c := *v
		c.Front = Clone(v.Front)
		c.Back = Clone(v.Back)
		return &c
	case *Leaf:
		c := *v
		c.Polygons = make([]Polygon, len(v.Polygons))
		for i := range v.Polygons {
			c.Polygons[i] = v.Polygons[i].Clone()
		}
		return &c
	}
	return Empty{}
}

func (p *Polygon) Clone() Polygon {
	c := *p
	c.Vertices = append(c.Vertices[:0:0], p.Vertices...)
	c.VertexNormals = append(c.VertexNormals[:0:0], p.VertexNormals...)
	c.UVs = append(c.UVs[:0:0], p.UVs...)
	c.Indices = append(c.Indices[:0:0], p.Indices...)
	return c
}
