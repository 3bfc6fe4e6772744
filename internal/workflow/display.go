package workflow

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterDisplay prints each status message on its own line
type WriterDisplay struct {
	W io.Writer
}

// Show writes the message
func (d *WriterDisplay) Show(_ context.Context, status Status) error {
	_, err := fmt.Fprintln(d.W, status.Message)
	return err
}

// RecordingDisplay remembers the last status, like a single text element
type RecordingDisplay struct {
	mu   sync.Mutex
	last Status
	seen int
}

// Show stores the status
func (d *RecordingDisplay) Show(_ context.Context, status Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = status
	d.seen++
	return nil
}

// Last returns the most recent status and how many were shown in total
func (d *RecordingDisplay) Last() (Status, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.seen
}

// MultiDisplay shows a status on every display and returns the first error
type MultiDisplay []Display

// Show fans the status out
func (m MultiDisplay) Show(ctx context.Context, status Status) error {
	var first error
	for _, d := range m {
		if err := d.Show(ctx, status); err != nil && first == nil {
			first = err
		}
	}
	return first
}
