// Package queue provides the binary heap used by best-bin-first tree search.
package queue

// Item is a heap entry. Node identifies the entry to the caller; Distance is
// its priority. Entries with equal Distance are ordered by Node so that
// traversal order never depends on insertion history.
type Item struct {
	Node     uint32
	Distance int
}

// PriorityQueue is a value-based binary heap of Items.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Item
}

// NewMin returns a queue whose top is the smallest Distance.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{items: make([]Item, 0, capacity)}
}

// NewMax returns a queue whose top is the largest Distance.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of queued items.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// TopItem returns the top element without removing it.
func (pq *PriorityQueue) TopItem() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item.
func (pq *PriorityQueue) PushItem(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PopItem removes and returns the top element.
func (pq *PriorityQueue) PopItem() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]
	if len(pq.items) > 0 {
		pq.siftDown(0)
	}
	return root, true
}

// Drain pops every item, top first, appending them to dst.
func (pq *PriorityQueue) Drain(dst []Item) []Item {
	for pq.Len() > 0 {
		it, _ := pq.PopItem()
		dst = append(dst, it)
	}
	return dst
}

func (pq *PriorityQueue) less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Distance != b.Distance {
		if pq.isMaxHeap {
			return a.Distance > b.Distance
		}
		return a.Distance < b.Distance
	}
	if pq.isMaxHeap {
		return a.Node > b.Node
	}
	return a.Node < b.Node
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
