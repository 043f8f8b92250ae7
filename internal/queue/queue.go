// Package queue provides a bounded priority queue used for top-k selection.
package queue

// Item represents an entry in the priority queue.
type Item struct {
	Position int     // ordinal of the stored vector
	Distance float32 // priority of the item in the queue
}

// Max is a max-heap of Items ordered by Distance. Keeping the worst candidate
// on top makes it cheap to maintain the k best candidates seen so far.
type Max struct {
	items []Item
}

// NewMax initializes a new max-heap with the given capacity.
func NewMax(capacity int) *Max {
	return &Max{items: make([]Item, 0, capacity)}
}

// Len returns the number of items in the queue.
func (pq *Max) Len() int { return len(pq.items) }

// Top returns the item with the largest Distance.
func (pq *Max) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *Max) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the item with the largest Distance.
func (pq *Max) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

func (pq *Max) less(i, j int) bool {
	return pq.items[i].Distance > pq.items[j].Distance
}

func (pq *Max) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *Max) siftDown(i int) {
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
