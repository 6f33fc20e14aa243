package apartment

import (
	"container/heap"
	"time"
)

// delayedItem is a callback waiting for its deadline to elapse before it is
// moved onto the idle ready queue.
type delayedItem struct {
	deadline time.Time
	it       *item
	index    int // heap bookkeeping
}

// delayedQueue is a min-heap of delayedItem ordered by deadline, used by the
// apartment's timer goroutine to know when to wake up next.
type delayedQueue []*delayedItem

func (q delayedQueue) Len() int { return len(q) }

func (q delayedQueue) Less(i, j int) bool { return q[i].deadline.Before(q[j].deadline) }

func (q delayedQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}

func (q *delayedQueue) Push(x any) {
	di := x.(*delayedItem)
	di.index = len(*q)
	*q = append(*q, di)
}

func (q *delayedQueue) Pop() any {
	old := *q
	n := len(old)
	di := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return di
}

// peek returns the item with the nearest deadline, without removing it.
func (q delayedQueue) peek() *delayedItem {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// removeByID scans the heap for an item with the given id and removes it,
// reporting whether one was found. O(n): delayed queues are expected to stay
// small relative to ready queues.
func (q *delayedQueue) removeByID(id uint64) bool {
	for i, di := range *q {
		if di.it.id == id {
			heap.Remove(q, i)
			return true
		}
	}
	return false
}
