package index

import "github.com/hupe1980/vismatch/internal/queue"

// Collector keeps the k best (distance, index) pairs seen so far.
type Collector struct {
	k  int
	pq *queue.PriorityQueue // max-heap: worst kept neighbour on top
}

// NewCollector returns a Collector for k results.
func NewCollector(k int) *Collector {
	return &Collector{k: k, pq: queue.NewMax(k + 1)}
}

// Offer considers a candidate. Of two candidates at equal distance the lower
// index is kept.
func (c *Collector) Offer(idx, dist int) {
	if c.k <= 0 {
		return
	}
	if c.pq.Len() < c.k {
		c.pq.PushItem(queue.Item{Node: uint32(idx), Distance: dist})
		return
	}
	top, _ := c.pq.TopItem()
	if dist > top.Distance || (dist == top.Distance && uint32(idx) >= top.Node) {
		return
	}
	c.pq.PopItem()
	c.pq.PushItem(queue.Item{Node: uint32(idx), Distance: dist})
}

// Full reports whether k candidates are held.
func (c *Collector) Full() bool { return c.pq.Len() >= c.k }

// Worst returns the largest kept distance.
func (c *Collector) Worst() (int, bool) {
	top, ok := c.pq.TopItem()
	return top.Distance, ok
}

// Results empties the collector and returns its content, nearest first.
func (c *Collector) Results() []Neighbor {
	items := c.pq.Drain(make([]queue.Item, 0, c.pq.Len()))
	out := make([]Neighbor, len(items))
	for i, it := range items {
		out[len(items)-1-i] = Neighbor{Index: int(it.Node), Distance: it.Distance}
	}
	return out
}
