package octree

// arena owns every node of one tree generation. Resetting truncates the
// slice so the next build reuses the same backing array, and each reused
// node keeps its occupant buffer.
type arena struct {
	nodes []Node
}

func newArena(capacity int) *arena {
	return &arena{nodes: make([]Node, 0, capacity)}
}

func (a *arena) reset() {
	a.nodes = a.nodes[:0]
}

func (a *arena) len() int { return len(a.nodes) }

func (a *arena) get(h Handle) *Node { return &a.nodes[h] }

// alloc appends one empty leaf. Any *Node obtained before the call may be
// invalidated if the backing array grows.
func (a *arena) alloc(b Bounds, depth int) Handle {
	h := Handle(len(a.nodes))
	if len(a.nodes) < cap(a.nodes) {
		a.nodes = a.nodes[:len(a.nodes)+1]
	} else {
		a.nodes = append(a.nodes, Node{})
	}
	n := &a.nodes[h]
	occ := n.occupants[:0]
	*n = Node{Bounds: b, Depth: depth, firstChild: NoNode, occupants: occ}
	return h
}

// allocChildren appends the 8 octants of parent as consecutive slots and
// returns the first.
func (a *arena) allocChildren(parent Handle) Handle {
	b := a.nodes[parent].Bounds
	depth := a.nodes[parent].Depth + 1
	first := a.alloc(b.Child(0), depth)
	for oct := 1; oct < 8; oct++ {
		a.alloc(b.Child(oct), depth)
	}
	return first
}
