// Package tail follows a growing trace log and emits each completed event
// block as a parsed record.
//
// Trace events span multiple lines, so the tailer cannot emit line by
// line: it accumulates appended bytes and releases an event only once the
// next timestamp boundary (or the end of the run) proves the event is
// complete. Log rotation is detected and optionally followed.
package tail

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tkrenek/fbmask/internal/parser"
)

// DefaultRotateWait is how long Run waits for a rotated file to reappear.
const DefaultRotateWait = 10 * time.Second

// Options configures the tailer behavior.
type Options struct {
	FilePath     string                         // Path to the trace log
	FromStart    bool                           // Read existing content instead of only new events
	FollowRotate bool                           // Keep following through log rotations
	RotateWait   time.Duration                  // How long to wait for a rotated file (default 10s)
	OutputFunc   func(parser.TraceRecord) error // Called once per completed event
}

// Tailer follows a trace log file.
type Tailer struct {
	opts    Options
	file    *os.File
	offset  int64
	pending string
	watcher *fsnotify.Watcher
}

// New creates a new Tailer with the given options.
func New(opts Options) *Tailer {
	if opts.RotateWait <= 0 {
		opts.RotateWait = DefaultRotateWait
	}
	return &Tailer{opts: opts}
}

// Run starts tailing. It blocks until the context is cancelled or an
// error occurs. On cancellation the still-open trailing event is flushed
// before returning.
func (t *Tailer) Run(ctx context.Context) error {
	if err := t.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer t.close()

	if t.opts.FromStart {
		if err := t.readNewContent(); err != nil {
			return err
		}
	}

	if err := t.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}
	defer t.watcher.Close()

	return t.watch(ctx)
}

// openFile opens the trace log and positions the read offset.
func (t *Tailer) openFile() error {
	f, err := os.Open(t.opts.FilePath)
	if err != nil {
		return err
	}
	t.file = f

	if !t.opts.FromStart {
		stat, err := f.Stat()
		if err != nil {
			return err
		}
		t.offset = stat.Size()
	}
	return nil
}

func (t *Tailer) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	t.watcher = watcher

	return watcher.Add(t.opts.FilePath)
}

// watch monitors the file for changes and emits completed events.
func (t *Tailer) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return t.flush()

		case event, ok := <-t.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if err := t.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Op&fsnotify.Write == fsnotify.Write:
		return t.readNewContent()

	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		return t.handleRotation(ctx)
	}
	return nil
}

// readNewContent reads appended bytes and emits every event the new data
// completed. The still-open trailing event stays buffered until the next
// boundary arrives.
func (t *Tailer) readNewContent() error {
	if _, err := t.file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	data, err := io.ReadAll(t.file)
	if err != nil {
		return err
	}
	t.offset += int64(len(data))
	t.pending += string(data)

	return t.drainPending(false)
}

// drainPending emits the completed event blocks buffered so far. A block
// is complete when a later boundary line follows it; with final, the
// trailing open block is emitted too (end of run, nothing more will
// arrive). A trailing line without its newline yet is never treated as a
// boundary — it may still grow.
func (t *Tailer) drainPending(final bool) error {
	complete := t.pending
	remnant := ""
	if !final {
		cut := strings.LastIndexByte(complete, '\n')
		if cut < 0 {
			return nil
		}
		remnant = complete[cut+1:]
		complete = complete[:cut+1]
	}

	starts := boundaryOffsets(complete)
	if len(starts) == 0 {
		// Preamble before the first event; nothing worth keeping.
		t.pending = remnant
		return nil
	}

	last := starts[len(starts)-1]
	for i := 0; i+1 < len(starts); i++ {
		if err := t.emit(complete[starts[i]:starts[i+1]]); err != nil {
			return err
		}
	}

	if final {
		t.pending = ""
		return t.emit(complete[last:])
	}
	t.pending = complete[last:] + remnant
	return nil
}

// boundaryOffsets returns the byte offsets of all lines starting a new
// event block.
func boundaryOffsets(text string) []int {
	var offsets []int
	pos := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if parser.IsBlockBoundary(line) {
			offsets = append(offsets, pos)
		}
		pos += len(line)
	}
	return offsets
}

func (t *Tailer) emit(block string) error {
	block = strings.TrimRight(block, "\n")
	if block == "" {
		return nil
	}
	return t.opts.OutputFunc(parser.Extract(block))
}

// flush emits the trailing open event at the end of the run.
func (t *Tailer) flush() error {
	return t.drainPending(true)
}

// handleRotation handles trace log rotation. The pending tail of the old
// file is flushed first — it will never be completed by new data.
func (t *Tailer) handleRotation(ctx context.Context) error {
	if err := t.flush(); err != nil {
		return err
	}

	if !t.opts.FollowRotate {
		fmt.Fprintf(os.Stderr, "\nFile rotated. Exiting. Use --follow-rotate to follow through rotations.\n")
		return fmt.Errorf("file rotated")
	}

	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	timeout := time.After(t.opts.RotateWait)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			f, err := os.Open(t.opts.FilePath)
			if err != nil {
				continue
			}
			t.file = f
			t.offset = 0

			if err := t.watcher.Add(t.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}

			fmt.Fprintf(os.Stderr, "\n==> File rotated, following new file <==\n")
			return t.readNewContent()
		}
	}
}

// close closes all resources.
func (t *Tailer) close() {
	if t.file != nil {
		t.file.Close()
	}
	if t.watcher != nil {
		t.watcher.Close()
	}
}
