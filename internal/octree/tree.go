package octree

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
)

const (
	DefaultWorldSize = 1000.0
	DefaultMaxDepth  = 32
)

type Config struct {
	// WorldSize is the side of the root cube.
	WorldSize float64
	Center    r3.Vec
	// G is kept with the tree so force walks need not thread it through
	// every recursive call.
	G float64
	// MaxDepth caps subdivision. A leaf at this depth buckets further
	// bodies instead of splitting, which bounds work for coincident bodies.
	MaxDepth int
	// AutoExpand lets Rebuild grow the root cube to cover every body
	// instead of rejecting the ones outside it.
	AutoExpand bool
}

func DefaultConfig() Config {
	return Config{
		WorldSize:  DefaultWorldSize,
		G:          1.0,
		MaxDepth:   DefaultMaxDepth,
		AutoExpand: true,
	}
}

// Diagnostics aggregates what one build skipped or worked around.
type Diagnostics struct {
	Inserted int
	// Rejected includes Duplicates.
	Rejected   int
	Duplicates int
	Bucketed   int
	Expansions int
}

// Tree is a Barnes-Hut octree over a node arena. It is rebuilt from
// scratch every tick and must not be mutated while it is being walked.
type Tree struct {
	cfg   Config
	arena *arena
	root  Handle
	diag  Diagnostics

	ids      map[int]struct{}
	accepted []bool
}

// New constructs an empty tree whose root covers cfg.WorldSize around
// cfg.Center. Zero fields fall back to DefaultConfig values.
func New(cfg Config) *Tree {
	def := DefaultConfig()
	if !(cfg.WorldSize > 0) || math.IsInf(cfg.WorldSize, 0) {
		cfg.WorldSize = def.WorldSize
	}
	if cfg.G == 0 {
		cfg.G = def.G
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	t := &Tree{cfg: cfg, arena: newArena(64), ids: make(map[int]struct{})}
	t.Clear()
	return t
}

func (t *Tree) Config() Config { return t.cfg }
func (t *Tree) G() float64     { return t.cfg.G }

// Clear drops every node and restores the root to an empty leaf covering
// the configured world. Handles from before the call are invalid.
func (t *Tree) Clear() {
	t.reset(Cube(t.cfg.Center, t.cfg.WorldSize))
}

func (t *Tree) reset(root Bounds) {
	t.arena.reset()
	t.root = t.arena.alloc(root, 0)
	t.diag = Diagnostics{}
	clear(t.ids)
	t.accepted = t.accepted[:0]
}

// Insert adds one body. Invalid bodies, bodies outside the root and bodies
// whose ID is already held are rejected and counted without touching any
// aggregate.
func (t *Tree) Insert(b dynamo.Body) error {
	err := t.admit(b)
	t.accepted = append(t.accepted, err == nil)
	if err != nil {
		t.diag.Rejected++
		return err
	}
	t.ids[b.ID] = struct{}{}
	t.insert(t.root, Occupant{ID: b.ID, Position: b.Position, Mass: b.Mass})
	t.diag.Inserted++
	return nil
}

func (t *Tree) admit(b dynamo.Body) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if !t.arena.get(t.root).Bounds.Contains(b.Position) {
		return fmt.Errorf("%w: id %d at %v", dynamo.ErrOutOfBounds, b.ID, b.Position)
	}
	if _, dup := t.ids[b.ID]; dup {
		t.diag.Duplicates++
		return fmt.Errorf("%w: id %d", dynamo.ErrDuplicateID, b.ID)
	}
	return nil
}

// Accepted reports, in insertion order since the last Clear or Rebuild,
// whether each body was taken into the tree. After Rebuild(bodies),
// Accepted()[i] describes bodies[i].
func (t *Tree) Accepted() []bool { return t.accepted }

// insert walks down from h, folding the body into every internal node it
// passes, until it settles in a leaf.
func (t *Tree) insert(h Handle, o Occupant) {
	for {
		n := t.arena.get(h)
		switch {
		case !n.IsLeaf():
			n.accumulate(o)
			h = n.Child(n.Bounds.Octant(o.Position))

		case len(n.occupants) == 0:
			n.occupants = append(n.occupants, o)
			n.Mass = o.Mass
			n.CenterOfMass = o.Position
			return

		case n.Depth >= t.cfg.MaxDepth:
			n.occupants = append(n.occupants, o)
			n.accumulate(o)
			t.diag.Bucketed++
			return

		default:
			t.split(h)
		}
	}
}

// split turns an occupied leaf into an internal node and pushes its
// occupant down one level. The node's aggregate already covers that
// occupant, so it stays as is.
func (t *Tree) split(h Handle) {
	first := t.arena.allocChildren(h)
	n := t.arena.get(h)
	n.firstChild = first

	for _, o := range n.occupants {
		c := t.arena.get(n.Child(n.Bounds.Octant(o.Position)))
		if len(c.occupants) == 0 {
			c.Mass = o.Mass
			c.CenterOfMass = o.Position
		} else {
			c.accumulate(o)
		}
		c.occupants = append(c.occupants, o)
	}
	n.occupants = n.occupants[:0]
}

// Rebuild clears the tree and inserts every body. With AutoExpand the root
// cube is first doubled until all valid bodies fit. Bad bodies are skipped
// and reported in the returned Diagnostics.
func (t *Tree) Rebuild(bodies []dynamo.Body) Diagnostics {
	root := Cube(t.cfg.Center, t.cfg.WorldSize)
	expansions := 0
	if t.cfg.AutoExpand {
		for i := range bodies {
			if bodies[i].Validate() != nil {
				continue
			}
			expansions += root.expandToFit(bodies[i].Position)
		}
	}
	t.reset(root)
	t.diag.Expansions = expansions

	for i := range bodies {
		_ = t.Insert(bodies[i])
	}
	return t.diag
}

func (t *Tree) Diagnostics() Diagnostics { return t.diag }

func (t *Tree) Root() Handle { return t.root }

// Node returns the node behind h. The pointer is valid until the tree is
// next mutated.
func (t *Tree) Node(h Handle) *Node { return t.arena.get(h) }

// Children returns the 8 child handles of h in octant order, or nil for a
// leaf.
func (t *Tree) Children(h Handle) []Handle {
	n := t.arena.get(h)
	if n.IsLeaf() {
		return nil
	}
	out := make([]Handle, 8)
	for oct := range out {
		out[oct] = n.Child(oct)
	}
	return out
}

// Len is the number of bodies held by the tree.
func (t *Tree) Len() int { return t.diag.Inserted }

// Walk visits nodes depth-first from the root. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(h Handle, n *Node) bool) {
	t.walk(t.root, fn)
}

func (t *Tree) walk(h Handle, fn func(h Handle, n *Node) bool) {
	n := t.arena.get(h)
	if !fn(h, n) || n.IsLeaf() {
		return
	}
	for oct := 0; oct < 8; oct++ {
		t.walk(n.Child(oct), fn)
	}
}

type Stats struct {
	Nodes       int
	Leaves      int
	EmptyLeaves int
	MaxDepth    int
	// BucketLeaves counts leaves holding more than one body.
	BucketLeaves int
}

func (t *Tree) Stats() Stats {
	var s Stats
	s.Nodes = t.arena.len()
	for i := range t.arena.nodes {
		n := &t.arena.nodes[i]
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		if !n.IsLeaf() {
			continue
		}
		s.Leaves++
		switch len(n.occupants) {
		case 0:
			s.EmptyLeaves++
		case 1:
		default:
			s.BucketLeaves++
		}
	}
	return s
}
