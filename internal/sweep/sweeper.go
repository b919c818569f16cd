package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/turnstilehq/turnstile/pkg/log"
)

type (
	// Sweeper runs delayed tasks, waking queued steps when their schedule
	// arrives and finalizing steps at their expiration deadline. Tasks are
	// keyed so rescheduling replaces rather than duplicates
	Sweeper struct {
		now       Clock
		makeTimer TimerConstructor
		tasks     chan taskReq
	}

	// TaskFunc is called when its run time arrives
	TaskFunc func(ctx context.Context) error

	taskReqOp uint8

	taskReq struct {
		op   taskReqOp
		task *Task
		key  string
	}
)

const (
	taskReqSchedule taskReqOp = iota
	taskReqCancel
)

const taskQueueSize = 100

// New creates a sweeper using the provided clock and timer constructor
func New(now Clock, makeTimer TimerConstructor) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if makeTimer == nil {
		makeTimer = NewTimer
	}
	return &Sweeper{
		now:       now,
		makeTimer: makeTimer,
		tasks:     make(chan taskReq, taskQueueSize),
	}
}

// Schedule enqueues a task to run at the requested time, replacing any task
// already registered for the key
func (s *Sweeper) Schedule(
	ctx context.Context, key string, at time.Time, fn TaskFunc,
) {
	s.sendTaskReq(ctx, taskReq{
		op:   taskReqSchedule,
		task: &Task{Func: fn, At: at, Key: key},
	})
}

// Cancel removes the task registered for the key
func (s *Sweeper) Cancel(ctx context.Context, key string) {
	s.sendTaskReq(ctx, taskReq{op: taskReqCancel, key: key})
}

// Run processes sweeper requests until the context is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	timer := s.makeTimer(0)
	var timerCh <-chan time.Time
	tasks := newTaskHeap()

	resetTimer := func() {
		var next time.Time
		if t := tasks.peek(); t != nil {
			next = t.At
		}
		if next.IsZero() {
			timer.Stop()
			timerCh = nil
			return
		}
		timer.Reset(next.Sub(s.now()))
		timerCh = timer.Channel()
	}

	resetTimer()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case req := <-s.tasks:
			switch req.op {
			case taskReqSchedule:
				tasks.insert(req.task)
			case taskReqCancel:
				tasks.cancel(req.key)
			}
			resetTimer()
		case <-timerCh:
			task := tasks.popTask()
			if task == nil {
				resetTimer()
				continue
			}
			if err := task.Func(ctx); err != nil {
				slog.Error("Sweep task failed",
					slog.String("key", task.Key),
					log.Error(err))
			}
			resetTimer()
		}
	}
}

func (s *Sweeper) sendTaskReq(ctx context.Context, req taskReq) {
	select {
	case s.tasks <- req:
	case <-ctx.Done():
	}
}
