package grid

// Components labels the connected regions of passable cells of f, using the
// 2·N axis neighbours of every cell.
//
// labels[offset] is the component number of the cell, numbered 0..count-1 in
// order of their lowest offset, or -1 when passable reports false for the sample.
//
// Time:   O(Len·N).
// Memory: O(Len) for labels and the BFS queue.
func Components(f *Field, passable func(float64) bool) (labels []int, count int) {
	g := f.grid
	labels = make([]int, g.Len())
	for i := range labels {
		labels[i] = -1
	}

	seen := make([]bool, g.Len())
	var queue []int
	for start, v := range f.data {
		if seen[start] || !passable(v) {
			continue
		}
		// BFS to collect component
		queue = append(queue[:0], start)
		seen[start] = true
		for qi := 0; qi < len(queue); qi++ {
			u := queue[qi]
			labels[u] = count
			for d := 0; d < g.Dims(); d++ {
				for _, dir := range [2]int{-1, +1} {
					n, ok := g.Neighbor(u, d, dir)
					if !ok || seen[n] || !passable(f.data[n]) {
						continue
					}
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		count++
	}

	return labels, count
}
