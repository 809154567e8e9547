package maze

import "container/heap"

type entry struct {
	f, g int64
	flat int
}

// queue is a min-heap of open nodes ordered by (f, g, flat). Stale entries
// stay in the heap and are skipped on pop.
type queue []entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g < q[j].g
	}
	return q[i].flat < q[j].flat
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(entry)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

func (q *queue) push(e entry) { heap.Push(q, e) }

func (q *queue) pop() entry { return heap.Pop(q).(entry) }

func (q *queue) reset() { *q = (*q)[:0] }
