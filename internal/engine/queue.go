package engine

import (
	"sort"
	"sync"

	"github.com/nexusplatform/orchestrator/internal/domain"
)

// queue is the priority task queue. Tasks are ordered by priority rank
// (critical first) with FIFO order inside a band, enforced by a stable sort
// over insertion sequence. The queue owns tasks until they are popped.
type queue struct {
	mu    sync.Mutex
	items []queued
	seq   uint64
}

type queued struct {
	task *domain.Task
	seq  uint64
}

func newQueue() *queue {
	return &queue{}
}

// Push inserts a task and re-sorts the whole collection. Re-inserted
// retries get a fresh sequence number, so they queue behind same-priority
// work already waiting.
func (q *queue) Push(task *domain.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	q.items = append(q.items, queued{task: task, seq: q.seq})
	sort.SliceStable(q.items, func(i, j int) bool {
		ri, rj := q.items[i].task.Priority.Rank(), q.items[j].task.Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return q.items[i].seq < q.items[j].seq
	})
}

// Peek returns the head task without removing it, or nil when empty.
func (q *queue) Peek() *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0].task
}

// Pop removes and returns the head task, or nil when empty.
func (q *queue) Pop() *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0].task
	q.items = q.items[1:]
	return head
}

// Len returns the number of waiting tasks.
func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
