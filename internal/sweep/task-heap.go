package sweep

import (
	"container/heap"
	"time"
)

type (
	// Task describes a scheduled function and when it becomes due
	Task struct {
		Func  TaskFunc
		At    time.Time
		Key   string
		index int
	}

	// taskHeap stores due tasks ordered by execution time, with keyed
	// replacement so rescheduling a step+entry pair never duplicates it
	taskHeap struct {
		items []*Task
		byKey map[string]*Task
	}
)

func newTaskHeap() *taskHeap {
	h := &taskHeap{byKey: map[string]*Task{}}
	heap.Init(h)
	return h
}

// insert adds a task or replaces the existing task for the same key
func (h *taskHeap) insert(t *Task) {
	if t == nil || t.Func == nil || t.At.IsZero() {
		return
	}
	if t.Key != "" {
		if old, ok := h.byKey[t.Key]; ok && old != nil {
			old.Func = t.Func
			old.At = t.At
			heap.Fix(h, old.index)
			return
		}
	}
	heap.Push(h, t)
}

func (h *taskHeap) popTask() *Task {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*Task)
}

func (h *taskHeap) peek() *Task {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// cancel removes the keyed task, if present
func (h *taskHeap) cancel(key string) {
	t, ok := h.byKey[key]
	if !ok || t == nil {
		return
	}
	heap.Remove(h, t.index)
}

func (h *taskHeap) Len() int {
	return len(h.items)
}

func (h *taskHeap) Less(i, j int) bool {
	return h.items[i].At.Before(h.items[j].At)
}

func (h *taskHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(h.items)
	h.items = append(h.items, t)
	if t.Key != "" {
		h.byKey[t.Key] = t
	}
}

func (h *taskHeap) Pop() any {
	old := h.items
	n := len(old)
	if n == 0 {
		return nil
	}
	t := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	t.index = -1
	if t.Key != "" {
		delete(h.byKey, t.Key)
	}
	return t
}
