package chain

import "container/heap"

// agendaItem is one entry in the priority queue: a queued fact-instance key
// plus the priority it was pushed at and its insertion sequence (used to
// break priority ties in FIFO order).
type agendaItem struct {
	key      string
	priority float64
	seq      int
}

// agendaHeap is a max-heap by priority (larger pops first), ties broken by
// earlier insertion order. It replaces the "sort after every push" approach
// the teacher's source uses elsewhere with a proper heap: O(log n) push/pop
// instead of O(n log n) per operation.
type agendaHeap []*agendaItem

func (h agendaHeap) Len() int { return len(h) }
func (h agendaHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h agendaHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *agendaHeap) Push(x any)   { *h = append(*h, x.(*agendaItem)) }
func (h *agendaHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// agenda wraps agendaHeap with insertion-sequence bookkeeping.
type agenda struct {
	h       agendaHeap
	nextSeq int
}

func newAgenda() *agenda {
	a := &agenda{h: agendaHeap{}}
	heap.Init(&a.h)
	return a
}

func (a *agenda) push(key string, priority float64) {
	heap.Push(&a.h, &agendaItem{key: key, priority: priority, seq: a.nextSeq})
	a.nextSeq++
}

func (a *agenda) empty() bool { return a.h.Len() == 0 }

func (a *agenda) pop() (string, bool) {
	if a.empty() {
		return "", false
	}
	item := heap.Pop(&a.h).(*agendaItem)
	return item.key, true
}
