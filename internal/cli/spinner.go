package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows how many documents of a batch have been converted. Workers
// call Advance as they finish; the count is redrawn with every frame.
type Spinner struct {
	w     io.Writer
	label string
	total int
	done  atomic.Int64

	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped chan struct{}
	once    sync.Once

	mu    sync.Mutex
	width int // widest line drawn so far
}

// newSpinner creates a spinner for total documents that stops when ctx is
// cancelled.
func newSpinner(ctx context.Context, w io.Writer, label string, total int) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		label:   label,
		total:   total,
		parent:  ctx,
		ctx:     spinnerCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			s.draw(spinnerFrames[i%len(spinnerFrames)])
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
			}
		}
	}()
}

// Advance records one finished document. It is safe for concurrent use.
func (s *Spinner) Advance() {
	s.done.Add(1)
}

// Completed returns the number of finished documents.
func (s *Spinner) Completed() int {
	return int(s.done.Load())
}

func (s *Spinner) message() string {
	return fmt.Sprintf("%s %d/%d documents", s.label, s.done.Load(), s.total)
}

func (s *Spinner) draw(frame string) {
	msg := s.message()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(msg)+2)
	fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(msg))
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%*s\r", s.width, "")
	}
}

// Stop stops the animation and clears the line. Extra calls do nothing.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
		s.clearLine()
	})
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the batch was interrupted by its context rather
// than stopped.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
