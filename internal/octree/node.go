package octree

import "gonum.org/v1/gonum/spatial/r3"

// Handle addresses a node in the tree's arena. Handles are only valid until
// the next Clear or Rebuild.
type Handle int32

// NoNode is the handle of an absent node.
const NoNode Handle = -1

// NodeState is the lifecycle position of a node within one build. It only
// moves forward (empty, occupied, internal) until the tree is cleared.
type NodeState uint8

const (
	EmptyLeaf NodeState = iota
	OccupiedLeaf
	Internal
)

func (s NodeState) String() string {
	switch s {
	case EmptyLeaf:
		return "empty"
	case OccupiedLeaf:
		return "occupied"
	case Internal:
		return "internal"
	}
	return "unknown"
}

// Occupant is the engine's view of a body: identity, position and mass.
type Occupant struct {
	ID       int
	Position r3.Vec
	Mass     float64
}

// Node is one cell of the octree. A leaf holds occupants and no children;
// an internal node holds 8 children and no occupants. Mass and
// CenterOfMass always aggregate every body below the node.
type Node struct {
	Bounds       Bounds
	Mass         float64
	CenterOfMass r3.Vec
	Depth        int

	firstChild Handle
	occupants  []Occupant
}

func (n *Node) State() NodeState {
	switch {
	case n.firstChild != NoNode:
		return Internal
	case len(n.occupants) > 0:
		return OccupiedLeaf
	}
	return EmptyLeaf
}

func (n *Node) IsLeaf() bool { return n.firstChild == NoNode }

// Occupants returns the bodies stored in a leaf. More than one occupant
// only happens at the depth limit.
func (n *Node) Occupants() []Occupant { return n.occupants }

// Child returns the handle of octant oct, or NoNode for a leaf.
func (n *Node) Child(oct int) Handle {
	if n.firstChild == NoNode {
		return NoNode
	}
	return n.firstChild + Handle(oct)
}

// accumulate folds one body into the aggregate:
// com' = (com*m + p*mb) / (m+mb), m' = m+mb.
func (n *Node) accumulate(o Occupant) {
	total := n.Mass + o.Mass
	n.CenterOfMass = r3.Scale(1/total, r3.Add(r3.Scale(n.Mass, n.CenterOfMass), r3.Scale(o.Mass, o.Position)))
	n.Mass = total
}
