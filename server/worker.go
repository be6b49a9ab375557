package server

import (
	"context"
	"errors"
	"fmt"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("worker stopped")

// job is a unit of work executed on the worker goroutine.
type job struct {
	fn   func() (any, error)
	done chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// Worker serializes program runs through a single goroutine. Every run
// gets a fresh VM, so no VM state is shared between requests; the worker
// bounds how many runs execute at once and contains their panics.
type Worker struct {
	jobs chan job
	quit chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		jobs: make(chan job, 64),
		quit: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case j := <-w.jobs:
			j.done <- w.execute(j.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func() (any, error)) (result jobResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker: recovered from panic: %v", r)
			result = jobResult{err: fmt.Errorf("internal error: %v", r)}
		}
	}()
	v, err := fn()
	return jobResult{value: v, err: err}
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes or ctx is done.
func (w *Worker) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	j := job{fn: fn, done: make(chan jobResult, 1)}
	select {
	case w.jobs <- j:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-j.done:
		return r.value, r.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
}
