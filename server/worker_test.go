package server

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWorkerDo(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	v, err := w.Do(bg(), func() (any, error) { return 42, nil })
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 {
		t.Errorf("Do = %v, want 42", v)
	}

	boom := errors.New("boom")
	if _, err := w.Do(bg(), func() (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("Do error = %v, want %v", err, boom)
	}
}

func TestWorkerSerializes(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	// Unsynchronized access is safe because jobs run one at a time.
	counter := 0
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			w.Do(bg(), func() (any, error) {
				counter++
				return nil, nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	v, _ := w.Do(bg(), func() (any, error) { return counter, nil })
	if v != 10 {
		t.Errorf("counter = %v, want 10", v)
	}
}

func TestWorkerRecoversPanic(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	_, err := w.Do(bg(), func() (any, error) { panic("kaboom") })
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Do error = %v, want the panic value", err)
	}

	// The worker keeps serving after a panic.
	if v, err := w.Do(bg(), func() (any, error) { return "ok", nil }); err != nil || v != "ok" {
		t.Errorf("Do after panic = %v, %v", v, err)
	}
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker()
	w.Stop()
	w.Stop()

	if _, err := w.Do(bg(), func() (any, error) { return nil, nil }); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("Do error = %v, want %v", err, ErrWorkerStopped)
	}
}

func TestWorkerContextCancel(t *testing.T) {
	w := NewWorker()
	defer w.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	go w.Do(bg(), func() (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	ctx, cancel := context.WithTimeout(bg(), 50*time.Millisecond)
	defer cancel()
	_, err := w.Do(ctx, func() (any, error) { return nil, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do error = %v, want %v", err, context.DeadlineExceeded)
	}
}
