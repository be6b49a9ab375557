package server

import (
	"context"
	"os"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

var testWorker *Worker

func TestMain(m *testing.M) {
	testWorker = NewWorker()
	code := m.Run()
	testWorker.Stop()
	os.Exit(code)
}

// newTestToolchain creates a ToolchainService on the shared worker with an
// in-memory run history.
func newTestToolchain(t *testing.T, maxSteps int) *ToolchainService {
	t.Helper()
	h, err := OpenRunStore(":memory:")
	if err != nil {
		t.Fatalf("OpenRunStore: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return NewToolchainService(testWorker, h, maxSteps)
}

func bg() context.Context {
	return context.Background()
}

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}
