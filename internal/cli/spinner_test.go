package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer serializes writes so the spinner goroutine and the test can
// share it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerWritesMessage(t *testing.T) {
	out := &syncBuffer{}
	s := newSpinner("Computing layout...")
	s.out = out

	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(out.String(), "Computing layout...") {
		t.Error("spinner output should carry the stage message")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Rendering timelines...")
	s.out = &syncBuffer{}
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancellation after its context is cancelled")
	}
}

func TestSpinnerContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "Loading study...")
	s.out = &syncBuffer{}
	s.Start()

	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should report cancellation after its context times out")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Rendering timelines...")
	s.out = &syncBuffer{}
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}
