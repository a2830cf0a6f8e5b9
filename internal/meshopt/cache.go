package meshopt

// vertexCacheSize is the post-transform cache modelled for reordering.
const vertexCacheSize = 16

// ACMR is the average number of post-transform cache misses per triangle for a FIFO cache of
// the given size. It lies in [0.5, 3] for real meshes; lower is better.
func ACMR(indices []uint32, cacheSize int) float32 {
	ntri := len(indices) / 3
	if ntri == 0 {
		return 0
	}
	fifo := make([]uint32, 0, cacheSize)
	misses := 0
	for _, v := range indices[:ntri*3] {
		hit := false
		for _, c := range fifo {
			if c == v {
				hit = true
				break
			}
		}
		if hit {
			continue
		}
		misses++
		if len(fifo) == cacheSize {
			copy(fifo, fifo[1:])
			fifo = fifo[:cacheSize-1]
		}
		fifo = append(fifo, v)
	}
	return float32(misses) / float32(ntri)
}

// Reorder returns the triangles of indices in a vertex-cache friendly order (Tipsify: fan
// around a vertex, then move to the cached neighbour with the most remaining uses).
func Reorder(indices []uint32, numVertices, cacheSize int) []uint32 {
	ntri := len(indices) / 3
	if ntri == 0 || numVertices == 0 {
		return append([]uint32(nil), indices...)
	}

	offsets := make([]int, numVertices+1)
	for _, v := range indices[:ntri*3] {
		offsets[v+1]++
	}
	for i := 0; i < numVertices; i++ {
		offsets[i+1] += offsets[i]
	}
	adj := make([]int, ntri*3)
	fill := append([]int(nil), offsets[:numVertices]...)
	for t := 0; t < ntri; t++ {
		for c := 0; c < 3; c++ {
			v := indices[3*t+c]
			adj[fill[v]] = t
			fill[v]++
		}
	}

	live := make([]int, numVertices)
	for v := range live {
		live[v] = offsets[v+1] - offsets[v]
	}
	stamp := make([]int, numVertices)
	emitted := make([]bool, ntri)
	out := make([]uint32, 0, ntri*3)
	var deadEnd []int

	clock := cacheSize + 1
	cursor := 0
	fan := 0
	for fan >= 0 {
		var candidates []int
		for _, t := range adj[offsets[fan]:offsets[fan+1]] {
			if emitted[t] {
				continue
			}
			emitted[t] = true
			for c := 0; c < 3; c++ {
				v := int(indices[3*t+c])
				out = append(out, uint32(v))
				deadEnd = append(deadEnd, v)
				candidates = append(candidates, v)
				live[v]--
				if clock-stamp[v] > cacheSize {
					stamp[v] = clock
					clock++
				}
			}
		}

		fan = -1
		best := -1
		for _, v := range candidates {
			if live[v] == 0 {
				continue
			}
			p := 0
			if age := clock - stamp[v]; age+2*live[v] <= cacheSize {
				p = age
			}
			if p > best {
				best = p
				fan = v
			}
		}
		if fan >= 0 {
			continue
		}
		for len(deadEnd) > 0 && fan < 0 {
			v := deadEnd[len(deadEnd)-1]
			deadEnd = deadEnd[:len(deadEnd)-1]
			if live[v] > 0 {
				fan = v
			}
		}
		for fan < 0 && cursor < numVertices {
			if live[cursor] > 0 {
				fan = cursor
			}
			cursor++
		}
	}
	return out
}
