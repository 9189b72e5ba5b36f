// Package octree implements the spatial index behind the Barnes-Hut force
// approximation.
//
// Space is split recursively into 8 octants. Every node carries the total
// mass and center of mass of the bodies below it, updated incrementally as
// bodies are inserted. Leaves hold exactly one body, except at the depth
// limit where coincident bodies share a bucket.
//
// Nodes live in an arena addressed by [Handle]. A tick is a full
// clear-and-reinsert cycle:
//
//	tree := octree.New(octree.DefaultConfig())
//	for tick := range ticks {
//	    diag := tree.Rebuild(bodies)
//	    // read-only walks over tree.Root() ...
//	}
//
// Rebuild is single-threaded. Any number of goroutines may walk a built
// tree concurrently as long as nobody inserts.
package octree
