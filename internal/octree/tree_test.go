package octree_test

import (
	"math"
	"math/rand/v2"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/octree"
)

func randomBodies(n int, seed uint64, spread float64) []dynamo.Body {
	rnd := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	bodies := make([]dynamo.Body, n)
	for i := range bodies {
		bodies[i] = dynamo.Body{
			ID: i,
			Position: r3.Vec{
				X: (rnd.Float64() - 0.5) * spread,
				Y: (rnd.Float64() - 0.5) * spread,
				Z: (rnd.Float64() - 0.5) * spread,
			},
			Mass: 0.5 + rnd.Float64()*10,
		}
	}
	return bodies
}

type aggregate struct {
	Depth int
	State octree.NodeState
	Mass  float64
	COM   r3.Vec
}

func snapshot(t *octree.Tree) []aggregate {
	var out []aggregate
	t.Walk(func(_ octree.Handle, n *octree.Node) bool {
		out = append(out, aggregate{Depth: n.Depth, State: n.State(), Mass: n.Mass, COM: n.CenterOfMass})
		return true
	})
	return out
}

func expectVecNear(got, want r3.Vec, tol float64) {
	ExpectWithOffset(1, got.X).To(BeNumerically("~", want.X, tol))
	ExpectWithOffset(1, got.Y).To(BeNumerically("~", want.Y, tol))
	ExpectWithOffset(1, got.Z).To(BeNumerically("~", want.Z, tol))
}

var _ = Describe("Tree", func() {
	var tree *octree.Tree

	BeforeEach(func() {
		tree = octree.New(octree.Config{WorldSize: 100, G: 1, MaxDepth: 32})
	})

	Context("when empty", func() {
		It("has an empty leaf root", func() {
			root := tree.Node(tree.Root())
			Expect(root.State()).To(Equal(octree.EmptyLeaf))
			Expect(root.Mass).To(BeZero())
			Expect(tree.Len()).To(BeZero())
			Expect(tree.Stats().Nodes).To(Equal(1))
		})

		It("rebuilds from an empty body set without error", func() {
			diag := tree.Rebuild(nil)
			Expect(diag).To(Equal(octree.Diagnostics{}))
			Expect(tree.Node(tree.Root()).State()).To(Equal(octree.EmptyLeaf))
		})
	})

	Context("node lifecycle", func() {
		It("moves from empty to occupied to internal", func() {
			Expect(tree.Insert(dynamo.Body{ID: 1, Position: r3.Vec{X: -10}, Mass: 100})).To(Succeed())
			root := tree.Node(tree.Root())
			Expect(root.State()).To(Equal(octree.OccupiedLeaf))
			Expect(root.Mass).To(Equal(100.0))
			Expect(root.CenterOfMass).To(Equal(r3.Vec{X: -10}))

			Expect(tree.Insert(dynamo.Body{ID: 2, Position: r3.Vec{X: 10}, Mass: 100})).To(Succeed())
			root = tree.Node(tree.Root())
			Expect(root.State()).To(Equal(octree.Internal))
			Expect(root.Occupants()).To(BeEmpty())
			Expect(root.Mass).To(Equal(200.0))
			expectVecNear(root.CenterOfMass, r3.Vec{}, 1e-12)

			low := tree.Node(root.Child(root.Bounds.Octant(r3.Vec{X: -10})))
			high := tree.Node(root.Child(root.Bounds.Octant(r3.Vec{X: 10})))
			Expect(low.Occupants()).To(HaveLen(1))
			Expect(low.Occupants()[0].ID).To(Equal(1))
			Expect(high.Occupants()).To(HaveLen(1))
			Expect(high.Occupants()[0].ID).To(Equal(2))
			Expect(low.Depth).To(Equal(1))
		})

		It("restores an empty root on Clear", func() {
			tree.Rebuild(randomBodies(50, 1, 80))
			Expect(tree.Stats().Nodes).To(BeNumerically(">", 1))

			children := tree.Children(tree.Root())
			Expect(children).To(HaveLen(8))
			Expect(tree.Node(children[7]).Depth).To(Equal(1))

			tree.Clear()
			Expect(tree.Children(tree.Root())).To(BeNil())
			Expect(tree.Stats().Nodes).To(Equal(1))
			Expect(tree.Node(tree.Root()).State()).To(Equal(octree.EmptyLeaf))
			Expect(tree.Len()).To(BeZero())
		})
	})

	Context("aggregates", func() {
		var bodies []dynamo.Body

		BeforeEach(func() {
			bodies = randomBodies(500, 7, 90)
			diag := tree.Rebuild(bodies)
			Expect(diag.Inserted).To(Equal(500))
			Expect(diag.Rejected).To(BeZero())
		})

		It("conserves mass at the root", func() {
			Expect(tree.Node(tree.Root()).Mass).To(BeNumerically("~", dynamo.TotalMass(bodies), 1e-9))
		})

		It("places the root center of mass at the weighted mean", func() {
			expectVecNear(tree.Node(tree.Root()).CenterOfMass, dynamo.CenterOfMass(bodies), 1e-9)
		})

		It("keeps every internal node equal to the sum of its children", func() {
			tree.Walk(func(_ octree.Handle, n *octree.Node) bool {
				if n.IsLeaf() {
					for _, o := range n.Occupants() {
						Expect(n.Bounds.Contains(o.Position)).To(BeTrue())
					}
					return true
				}
				Expect(n.Occupants()).To(BeEmpty())

				mass := 0.0
				var weighted r3.Vec
				for oct := 0; oct < 8; oct++ {
					c := tree.Node(n.Child(oct))
					mass += c.Mass
					weighted = r3.Add(weighted, r3.Scale(c.Mass, c.CenterOfMass))
				}
				Expect(n.Mass).To(BeNumerically("~", mass, 1e-9*math.Max(1, mass)))
				expectVecNear(n.CenterOfMass, r3.Scale(1/mass, weighted), 1e-9)
				return true
			})
		})

		It("holds at most one body per leaf away from the depth limit", func() {
			Expect(tree.Stats().BucketLeaves).To(BeZero())
			Expect(tree.Len()).To(Equal(500))
		})

		It("produces identical aggregates when rebuilt twice", func() {
			first := snapshot(tree)
			tree.Rebuild(bodies)
			second := snapshot(tree)
			Expect(cmp.Diff(first, second)).To(BeEmpty())
		})
	})

	Context("coincident bodies", func() {
		It("buckets them at the depth limit instead of recursing forever", func() {
			tree = octree.New(octree.Config{WorldSize: 100, MaxDepth: 8})
			bodies := make([]dynamo.Body, 10)
			for i := range bodies {
				bodies[i] = dynamo.Body{ID: i, Position: r3.Vec{X: 1, Y: 2, Z: 3}, Mass: 1}
			}

			diag := tree.Rebuild(bodies)
			Expect(diag.Inserted).To(Equal(10))
			Expect(diag.Bucketed).To(Equal(9))

			stats := tree.Stats()
			Expect(stats.MaxDepth).To(Equal(8))
			Expect(stats.BucketLeaves).To(Equal(1))
			Expect(tree.Node(tree.Root()).Mass).To(Equal(10.0))
			expectVecNear(tree.Node(tree.Root()).CenterOfMass, r3.Vec{X: 1, Y: 2, Z: 3}, 1e-12)
		})
	})

	Context("invalid input", func() {
		It("rejects non-finite positions and non-positive masses", func() {
			bodies := []dynamo.Body{
				{ID: 0, Position: r3.Vec{X: 1}, Mass: 2},
				{ID: 1, Position: r3.Vec{X: math.NaN()}, Mass: 1},
				{ID: 2, Position: r3.Vec{Y: 1}, Mass: 0},
				{ID: 3, Position: r3.Vec{Z: 1}, Mass: -4},
				{ID: 4, Position: r3.Vec{Y: -3}, Mass: 3},
			}

			diag := tree.Rebuild(bodies)
			Expect(diag.Inserted).To(Equal(2))
			Expect(diag.Rejected).To(Equal(3))
			Expect(tree.Node(tree.Root()).Mass).To(Equal(5.0))
		})

		It("rejects repeated IDs and records which slots were taken", func() {
			bodies := []dynamo.Body{
				{ID: 1, Position: r3.Vec{X: 1}, Mass: 1},
				{ID: 2, Position: r3.Vec{X: -1}, Mass: 1},
				{ID: 1, Position: r3.Vec{Y: 4}, Mass: 5},
				{ID: 3, Position: r3.Vec{Z: math.Inf(1)}, Mass: 1},
			}

			diag := tree.Rebuild(bodies)
			Expect(diag.Inserted).To(Equal(2))
			Expect(diag.Duplicates).To(Equal(1))
			Expect(diag.Rejected).To(Equal(2))
			Expect(tree.Accepted()).To(Equal([]bool{true, true, false, false}))
			Expect(tree.Node(tree.Root()).Mass).To(Equal(2.0))

			Expect(tree.Insert(bodies[1])).To(MatchError(dynamo.ErrDuplicateID))

			tree.Clear()
			Expect(tree.Accepted()).To(BeEmpty())
			Expect(tree.Insert(bodies[2])).To(Succeed())
		})

		It("reports ErrInvalidBody from Insert", func() {
			err := tree.Insert(dynamo.Body{ID: 9, Mass: math.Inf(1)})
			Expect(err).To(MatchError(dynamo.ErrInvalidBody))
			Expect(tree.Node(tree.Root()).Mass).To(BeZero())
		})
	})

	Context("bodies outside the world", func() {
		far := []dynamo.Body{
			{ID: 0, Position: r3.Vec{}, Mass: 1},
			{ID: 1, Position: r3.Vec{X: 450, Y: -20}, Mass: 1},
		}

		It("rejects them when the root is fixed", func() {
			Expect(tree.Insert(far[1])).To(MatchError(dynamo.ErrOutOfBounds))

			diag := tree.Rebuild(far)
			Expect(diag.Inserted).To(Equal(1))
			Expect(diag.Rejected).To(Equal(1))
		})

		It("grows the root when auto expansion is on", func() {
			tree = octree.New(octree.Config{WorldSize: 100, AutoExpand: true})
			diag := tree.Rebuild(far)
			Expect(diag.Inserted).To(Equal(2))
			Expect(diag.Expansions).To(Equal(4))

			root := tree.Node(tree.Root())
			Expect(root.Bounds.Contains(far[1].Position)).To(BeTrue())
			Expect(root.Mass).To(Equal(2.0))
		})
	})
})
