// Package hct provides a hierarchical clustering tree over binary descriptors.
//
// Each inner node partitions its points with Hamming k-medoids; a point's
// child is the closest medoid (ties to the lowest child). Search follows the
// closest child down to a leaf and then visits the remaining branches
// best-bin-first until MaxChecks leaf points have been compared.
//
// Because construction and the first descent share the same closest-medoid
// rule, a query equal to an indexed descriptor always reaches that
// descriptor's leaf and is returned at distance 0.
package hct

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/hupe1980/vismatch/distance"
	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/internal/kmedoids"
	"github.com/hupe1980/vismatch/internal/queue"
)

// Compile-time check to ensure Tree satisfies the index interface.
var _ index.Index = (*Tree)(nil)

// Options contains configuration options for the tree.
type Options struct {
	// Branching is the number of clusters per inner node.
	Branching int

	// LeafSize is the largest number of points stored in a leaf.
	LeafSize int

	// Iterations bounds the k-medoids refinement steps per node.
	Iterations int

	// MaxChecks bounds the leaf points compared per search. Zero or negative
	// visits every leaf, which makes the search exact.
	MaxChecks int

	// Seed makes construction reproducible.
	Seed uint64
}

// DefaultOptions contains the default configuration options for the tree.
var DefaultOptions = Options{
	Branching:  8,
	LeafSize:   16,
	Iterations: 4,
	MaxChecks:  256,
	Seed:       0x5eed,
}

type node struct {
	medoid   int   // point index of the cluster centre; unused for the root
	children []int // node ids; empty for leaves
	points   []int // leaf members
}

// Tree is a hierarchical clustering tree.
// It is safe for concurrent Search calls once built.
type Tree struct {
	opts            Options
	descriptors     []byte
	bytesPerFeature int
	n               int
	nodes           []node // nodes[0] is the root
}

// New creates a tree with the given options.
func New(optFns ...func(o *Options)) (*Tree, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Branching < 2 {
		return nil, fmt.Errorf("hct: branching must be at least 2, got %d", opts.Branching)
	}
	if opts.LeafSize < 1 {
		return nil, fmt.Errorf("hct: leaf size must be positive, got %d", opts.LeafSize)
	}
	if opts.Iterations < 0 {
		return nil, fmt.Errorf("hct: iterations must not be negative, got %d", opts.Iterations)
	}
	return &Tree{opts: opts}, nil
}

// NewFactory returns an index.Factory producing trees with the given options.
func NewFactory(optFns ...func(o *Options)) (index.Factory, error) {
	if _, err := New(optFns...); err != nil {
		return nil, err
	}
	return func() index.Index {
		t, _ := New(optFns...)
		return t
	}, nil
}

// Options returns the tree configuration.
func (t *Tree) Options() Options { return t.opts }

// Build clusters descriptors into a tree. The buffer is retained, not copied.
func (t *Tree) Build(ctx context.Context, descriptors []byte, bytesPerFeature int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := index.CheckBuild(descriptors, bytesPerFeature)
	if err != nil {
		return err
	}

	b := builder{
		ctx:         ctx,
		opts:        t.opts,
		descriptors: descriptors,
		bpf:         bytesPerFeature,
		rng:         rand.New(rand.NewPCG(t.opts.Seed, uint64(n))),
		nodes:       make([]node, 0, 2*n/max(1, t.opts.LeafSize)+1),
	}
	members := make([]int, n)
	for i := range members {
		members[i] = i
	}
	if _, err := b.build(members, -1); err != nil {
		return err
	}

	t.descriptors = descriptors
	t.bytesPerFeature = bytesPerFeature
	t.n = n
	t.nodes = b.nodes
	return nil
}

type builder struct {
	ctx         context.Context
	opts        Options
	descriptors []byte
	bpf         int
	rng         *rand.Rand
	nodes       []node
}

func (b *builder) build(members []int, medoid int) (int, error) {
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{medoid: medoid})

	if len(members) <= b.opts.LeafSize {
		b.nodes[id].points = members
		return id, nil
	}

	res, err := kmedoids.Train(b.ctx, b.descriptors, b.bpf, members, b.opts.Branching, b.opts.Iterations, b.rng)
	if err != nil {
		return 0, err
	}

	groups := make([][]int, len(res.Medoids))
	for i, p := range members {
		groups[res.Assign[i]] = append(groups[res.Assign[i]], p)
	}

	nonEmpty := 0
	for _, g := range groups {
		if len(g) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		// Indistinguishable points; splitting would not terminate.
		b.nodes[id].points = members
		return id, nil
	}

	children := make([]int, 0, nonEmpty)
	for j, g := range groups {
		if len(g) == 0 {
			continue
		}
		child, err := b.build(g, res.Medoids[j])
		if err != nil {
			return 0, err
		}
		children = append(children, child)
	}
	b.nodes[id].children = children
	return id, nil
}

// Search returns up to k approximate nearest neighbours of query.
func (t *Tree) Search(query []byte, k int) ([]index.Neighbor, error) {
	if err := index.CheckQuery(query, t.bytesPerFeature); err != nil {
		return nil, err
	}
	if k <= 0 || t.n == 0 {
		return []index.Neighbor{}, nil
	}

	budget := t.opts.MaxChecks
	if budget <= 0 {
		budget = math.MaxInt
	}

	c := index.NewCollector(min(k, t.n))
	branches := queue.NewMin(64)
	checks := t.descend(0, query, branches, c)
	for checks < budget {
		it, ok := branches.PopItem()
		if !ok {
			break
		}
		checks += t.descend(int(it.Node), query, branches, c)
	}
	return c.Results(), nil
}

// descend walks from node id to a leaf through the closest child, queueing
// the other children, and returns the number of leaf points compared.
func (t *Tree) descend(id int, query []byte, branches *queue.PriorityQueue, c *index.Collector) int {
	for {
		nd := &t.nodes[id]
		if len(nd.children) == 0 {
			for _, p := range nd.points {
				c.Offer(p, distance.Hamming(query, t.descriptor(p)))
			}
			return len(nd.points)
		}

		best, bestDist := -1, math.MaxInt
		for _, child := range nd.children {
			d := distance.Hamming(query, t.descriptor(t.nodes[child].medoid))
			if d < bestDist {
				if best >= 0 {
					branches.PushItem(queue.Item{Node: uint32(best), Distance: bestDist})
				}
				best, bestDist = child, d
			} else {
				branches.PushItem(queue.Item{Node: uint32(child), Distance: d})
			}
		}
		id = best
	}
}

func (t *Tree) descriptor(p int) []byte {
	return t.descriptors[p*t.bytesPerFeature : (p+1)*t.bytesPerFeature]
}

// Len returns the number of indexed descriptors.
func (t *Tree) Len() int { return t.n }

// Depth returns the number of levels below the root.
func (t *Tree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		d := 0
		for _, c := range t.nodes[id].children {
			d = max(d, 1+walk(c))
		}
		return d
	}
	return walk(0)
}
