package flowplan

import "container/heap"

// StepIterator yields the steps of a plan in an order consistent with the
// dependency DAG: a step is never yielded before every step it depends on.
// Among all ready steps the lowest SubmitPriority is yielded first; priority
// ties resolve in step creation order.
//
// An iterator is single use and not safe for concurrent advancement. Call
// Iterate again for a fresh traversal.
type StepIterator struct {
	sg        *StepGraph
	remaining []int // unsatisfied dependency count per step
	ready     readyQueue
}

// Iterate returns a new scheduling iterator over the step graph. Priorities
// are read as steps become ready, so SubmitPriority must be assigned before
// the iterator reaches the step.
func (sg *StepGraph) Iterate() *StepIterator {
	it := &StepIterator{
		sg:        sg,
		remaining: make([]int, len(sg.steps)),
	}
	for si := range sg.steps {
		it.remaining[si] = len(sg.deps[si])
	}
	for si, step := range sg.steps {
		if it.remaining[si] == 0 {
			heap.Push(&it.ready, readyStep{step: step, index: si})
		}
	}
	return it
}

// Next returns the next step to dispatch, or false once every step has been
// yielded.
func (it *StepIterator) Next() (*Step, bool) {
	if it.ready.Len() == 0 {
		return nil, false
	}

	entry := heap.Pop(&it.ready).(readyStep)

	for _, di := range it.sg.dependents[entry.index] {
		it.remaining[di]--
		if it.remaining[di] == 0 {
			heap.Push(&it.ready, readyStep{step: it.sg.steps[di], index: di})
		}
	}

	return entry.step, true
}

type readyStep struct {
	step  *Step
	index int
}

// readyQueue is a min-heap over ready steps, ordered by submit priority with
// creation order as the deterministic tie break.
type readyQueue []readyStep

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].step.SubmitPriority != q[j].step.SubmitPriority {
		return q[i].step.SubmitPriority < q[j].step.SubmitPriority
	}
	return q[i].index < q[j].index
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(readyStep))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
