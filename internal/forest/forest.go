package forest

// Forest maps each original CLI argument to the top-level node (File or
// Dir) that argument produced, and remembers the order in which the
// arguments were added: Roots returns the top-level nodes in that order.
type Forest struct {
	roots   map[string]Node
	order   []string
}

// NewForest returns an empty Forest.
func NewForest() *Forest {
	return &Forest{roots: make(map[string]Node)}
}

// Add registers a top-level node under its originating argument.
func (fo *Forest) Add(arg string, n Node) {
	if _, exists := fo.roots[arg]; !exists {
		fo.order = append(fo.order, arg)
	}
	fo.roots[arg] = n
}

// Roots returns the top-level nodes in the order their arguments were
// added.
func (fo *Forest) Roots() []Node {
	out := make([]Node, 0, len(fo.order))
	for _, arg := range fo.order {
		out = append(out, fo.roots[arg])
	}
	return out
}

// Walk visits every Dir in the forest, bottom-up (children before
// parents), following File leaves along with their containing Dir.
func (fo *Forest) Walk(visit func(*Dir)) {
	for _, n := range fo.Roots() {
		if d, ok := n.(*Dir); ok {
			d.Walk(false, visit)
		}
	}
}

// CountBytes sums descendant file sizes across the whole forest, filtered
// by deletion state.
func (fo *Forest) CountBytes(wantDeleted bool) uint64 {
	var total uint64
	for _, n := range fo.Roots() {
		switch v := n.(type) {
		case *Dir:
			total += v.CountBytes(wantDeleted)
		case *File:
			if v.ToDelete() == wantDeleted {
				total += v.Size()
			}
		}
	}
	return total
}

// CountDeleted counts every node marked to-delete across the whole
// forest, including top-level nodes.
func (fo *Forest) CountDeleted() int {
	count := 0
	for _, n := range fo.Roots() {
		switch v := n.(type) {
		case *Dir:
			count += v.CountDeleted()
		case *File:
			if v.ToDelete() {
				count++
			}
		}
	}
	return count
}
