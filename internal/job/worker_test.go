package job

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("send_email", func(ctx context.Context, args []byte) error {
		called = true
		return nil
	})

	h, ok := r.lookup("send_email")
	if !ok {
		t.Fatal("lookup() did not find a registered handler")
	}
	if err := h(context.Background(), nil); err != nil {
		t.Fatalf("handler returned error = %v", err)
	}
	if !called {
		t.Error("registered handler was not invoked")
	}

	if _, ok := r.lookup("unknown"); ok {
		t.Error("lookup() found a handler for an unregistered job name")
	}
}

func TestWorker_RunIsolated_PropagatesHandlerError(t *testing.T) {
	w := &Worker{}
	wantErr := errors.New("boom")
	h := func(ctx context.Context, args []byte) error { return wantErr }

	err := w.runIsolated(context.Background(), h, nil)
	if !errors.Is(err, wantErr) {
		t.Errorf("runIsolated() error = %v, want %v", err, wantErr)
	}
}

func TestWorker_RunIsolated_RecoversPanic(t *testing.T) {
	w := &Worker{}
	h := func(ctx context.Context, args []byte) error {
		panic("handler exploded")
	}

	err := w.runIsolated(context.Background(), h, nil)
	if err == nil {
		t.Fatal("expected runIsolated() to convert a panic into an error")
	}
}

func TestWorker_RunIsolated_SuccessReturnsNil(t *testing.T) {
	w := &Worker{}
	h := func(ctx context.Context, args []byte) error { return nil }

	if err := w.runIsolated(context.Background(), h, nil); err != nil {
		t.Errorf("runIsolated() error = %v, want nil", err)
	}
}
