package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// elapsedAfter is how long a stage runs before the spinner starts showing
// elapsed time. Short stages stay quiet; slow rasterization shows progress.
const elapsedAfter = 2 * time.Second

// Spinner is the progress indicator shown while a pipeline stage runs. It
// stops on Stop or when the command's context is cancelled, and after
// elapsedAfter it appends the elapsed time to the message.
type Spinner struct {
	mu      sync.Mutex
	out     io.Writer
	message string
	started time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// newSpinner creates a spinner that runs until Stop.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that also stops when ctx is
// cancelled, so Ctrl+C clears the line before the command exits.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     os.Stderr,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.started = time.Now()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.render(spinnerFrames[i%len(spinnerFrames)])
				i++
			}
		}
	}()
}

func (s *Spinner) render(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := s.message
	if elapsed := time.Since(s.started); elapsed >= elapsedAfter {
		line = fmt.Sprintf("%s %s", line, StyleDim.Render(elapsed.Round(time.Second).String()))
	}
	fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(line))
}

// Stop halts the animation and clears the line. Safe to call repeatedly.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.message)+16))
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner stopped because its context did.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
