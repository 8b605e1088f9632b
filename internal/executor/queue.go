package executor

import (
	"container/heap"
	"sync"
)

// reqHeap is a max-heap keyed by (priority, arrival): higher priority
// first, equal priorities in FIFO arrival order.
type reqHeap []*Request

func (h reqHeap) Len() int { return len(h) }

func (h reqHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].arrival < h[j].arrival
}

func (h reqHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *reqHeap) Push(x interface{}) {
	*h = append(*h, x.(*Request))
}

func (h *reqHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// requestQueue is the blocking priority queue the single worker drains.
type requestQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  reqHeap
	seq    int64
	closed bool
}

func newRequestQueue() *requestQueue {
	q := &requestQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a request, stamping its arrival order. Returns false after
// Close.
func (q *requestQueue) Push(req *Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.seq++
	req.arrival = q.seq
	heap.Push(&q.items, req)
	q.cond.Signal()
	return true
}

// Pop blocks until a request is available or the queue is closed. The
// second return is false only once the queue is closed and drained.
func (q *requestQueue) Pop() (*Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return nil, false
	}

	req := heap.Pop(&q.items).(*Request)
	return req, true
}

// Len returns the number of pending requests.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes the worker and rejects further pushes. Pending items are
// dropped, not executed.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
