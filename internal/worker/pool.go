package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

const taskTimeout = 30 * time.Second

// Pool runs detached tasks on a bounded queue. The webhook handlers hand work
// here so the provider gets its acknowledgment immediately; a task failure or
// panic is logged and dropped, never surfaced to the provider.
type Pool struct {
	tasks  chan func(context.Context)
	wg     sync.WaitGroup
	logger *zap.Logger

	closeOnce sync.Once
}

// NewPool starts count workers with the given queue size.
func NewPool(count, queueSize int, logger *zap.Logger) *Pool {
	if count <= 0 {
		count = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	p := &Pool{
		tasks:  make(chan func(context.Context), queueSize),
		logger: logger,
	}
	p.wg.Add(count)
	for i := 0; i < count; i++ {
		go p.run()
	}
	return p
}

// Submit enqueues a task. It reports false when the queue is full; the caller
// already acknowledged the provider, so a dropped task relies on redelivery.
func (p *Pool) Submit(task func(context.Context)) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		p.logger.Warn("worker queue full, dropping task")
		return false
	}
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.invoke(task)
	}
}

func (p *Pool) invoke(task func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in detached task",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()
	task(ctx)
}
