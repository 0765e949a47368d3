package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muesli/cancelreader"
)

// DefaultPollInterval bounds how long a pending read survives cancellation.
const DefaultPollInterval = 100 * time.Millisecond

// cancelLine is injected into the read stream when a polling reader is
// cancelled. It is never a valid command code.
const cancelLine = "\x00cancel"

// ErrCanceled is returned by a platform-backed reader after Cancel.
var ErrCanceled = cancelreader.ErrCanceled

// CancelReader is a reader whose pending Read can be interrupted.
type CancelReader interface {
	io.ReadCloser
	// Cancel interrupts pending and future reads. It reports whether
	// the interruption took effect.
	Cancel() bool
}

// NewCancelReader wraps r. Files use the platform primitive when available;
// everything else is read through a polling reader. Cancelling ctx cancels
// the reader.
func NewCancelReader(ctx context.Context, r io.Reader, poll time.Duration) CancelReader {
	cr := platformReader(r)
	if cr == nil {
		cr = newPollReader(newPump(r), poll)
	}
	return bindContext(ctx, cr)
}

// platformReader returns nil when r has no interruptible read primitive.
func platformReader(r io.Reader) CancelReader {
	f, ok := r.(*os.File)
	if !ok {
		return nil
	}
	cr, err := cancelreader.NewReader(f)
	if err != nil {
		return nil
	}
	return cr
}

func bindContext(ctx context.Context, cr CancelReader) CancelReader {
	stop := context.AfterFunc(ctx, func() { cr.Cancel() })
	return &ctxReader{CancelReader: cr, stop: stop}
}

type ctxReader struct {
	CancelReader
	stop func() bool
}

func (r *ctxReader) Close() error {
	r.stop()
	return r.CancelReader.Close()
}

type chunk struct {
	b   []byte
	err error
}

// pump moves data from a blocking source into a channel. A pump outlives
// the readers built on it, so input is not lost between sessions.
type pump struct {
	chunks chan chunk
}

func newPump(src io.Reader) *pump {
	p := &pump{chunks: make(chan chunk, 16)}
	go p.run(src)
	return p
}

func (p *pump) run(src io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			p.chunks <- chunk{b: append([]byte(nil), buf[:n]...)}
		}
		if err != nil {
			p.chunks <- chunk{err: err}
			return
		}
	}
}

// pollReader waits for pump data in poll-sized slices and checks the cancel
// flag between them. Once cancelled it serves cancelLine, then io.EOF.
type pollReader struct {
	pump     *pump
	poll     time.Duration
	canceled atomic.Bool

	// Owned by the reading goroutine.
	pending  []byte
	sentinel *strings.Reader
	err      error

	closeOnce sync.Once
}

func newPollReader(p *pump, poll time.Duration) *pollReader {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &pollReader{pump: p, poll: poll}
}

func (r *pollReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		if r.sentinel == nil && r.canceled.Load() {
			r.sentinel = strings.NewReader(cancelLine + "\n")
		}
		if r.sentinel != nil {
			return r.sentinel.Read(b)
		}
		if len(r.pending) > 0 {
			n := copy(b, r.pending)
			r.pending = r.pending[n:]
			return n, nil
		}
		if r.err != nil {
			return 0, r.err
		}

		select {
		case c := <-r.pump.chunks:
			if c.err != nil {
				r.err = c.err
				// Leave the terminal error for readers created later.
				r.pump.chunks <- c
				continue
			}
			r.pending = c.b
		case <-ticker.C:
		}
	}
}

func (r *pollReader) Cancel() bool {
	return r.canceled.CompareAndSwap(false, true)
}

func (r *pollReader) Close() error {
	r.closeOnce.Do(func() { r.Cancel() })
	return nil
}

func isCancel(err error) bool {
	return errors.Is(err, ErrCanceled)
}
