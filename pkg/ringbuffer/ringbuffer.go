// Package ringbuffer provides a bounded, blocking byte FIFO used to decouple
// audio producers from the mixer's read loop.
package ringbuffer

import (
	"fmt"
	"io"
	"sync"
)

// RingBuffer is a thread-safe, fixed-capacity byte FIFO. Write blocks while
// the buffer is full; Read blocks while the buffer is empty. Once CloseWrite
// or CloseWithError has been called the state never clears.
//
// A RingBuffer's own mutex protects only its bytes, indices and close flags.
// Callers that need a producer write to also wake an unrelated reader (for
// example a Mixer's read loop waiting on many tracks at once) should set
// Notify; it is invoked, outside the buffer's lock, after every successful
// Write.
type RingBuffer struct {
	cond *sync.Cond

	mu         sync.Mutex
	buf        []byte
	head, tail int64
	closeWrite bool
	closeErr   error

	// Notify, if set, is called after each Write that writes all of a
	// non-empty p; a Write cut short by a close does not call it.
	// It lets a track share one wake signal across all of its inputs instead
	// of the mixer polling every ring buffer in turn.
	Notify func()
}

// New creates a RingBuffer with the given capacity in bytes.
func New(capacity int) *RingBuffer {
	rb := &RingBuffer{buf: make([]byte, capacity)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write copies as many bytes from p as fit, blocking while the buffer is
// full. It returns the number of bytes written and a non-nil error only if
// the buffer has been closed.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	if rb.closeErr != nil {
		err := rb.closeErr
		rb.mu.Unlock()
		return 0, err
	}
	if rb.closeWrite {
		rb.mu.Unlock()
		return 0, fmt.Errorf("ringbuffer: write: %w", io.ErrClosedPipe)
	}

	wn := 0
	bufsz := int64(len(rb.buf))
	for len(p) > 0 {
		for rb.tail-rb.head == bufsz {
			rb.cond.Wait()
			if rb.closeErr != nil {
				err := rb.closeErr
				rb.mu.Unlock()
				return wn, err
			}
			if rb.closeWrite {
				rb.mu.Unlock()
				return wn, fmt.Errorf("ringbuffer: write: %w", io.ErrClosedPipe)
			}
		}
		avail := int(bufsz - (rb.tail - rb.head))
		tail := int(rb.tail % bufsz)

		var n int
		if tail+avail <= len(rb.buf) {
			n = copy(rb.buf[tail:tail+avail], p)
		} else {
			n = copy(rb.buf[tail:], p)
			n += copy(rb.buf[:avail-n], p[n:])
		}

		rb.tail += int64(n)
		p = p[n:]
		wn += n
		rb.cond.Signal()
	}
	rb.mu.Unlock()

	if rb.Notify != nil {
		rb.Notify()
	}
	return wn, nil
}

// Read copies up to len(p) bytes into p, blocking while the buffer is empty
// and not closed. It returns io.EOF once the buffer is empty and CloseWrite
// was called, or the close error (io.ErrClosedPipe for a nil error) once
// CloseWithError was called.
func (rb *RingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closeErr != nil {
		return 0, rb.closeErr
	}

	for rb.head == rb.tail {
		if rb.closeWrite {
			return 0, io.EOF
		}
		rb.cond.Wait()
		if rb.closeErr != nil {
			return 0, rb.closeErr
		}
	}

	avail := int(rb.tail - rb.head)
	head := int(rb.head % int64(len(rb.buf)))

	var n int
	if head+avail <= len(rb.buf) {
		n = copy(p, rb.buf[head:head+avail])
	} else {
		n = copy(p, rb.buf[head:])
		n += copy(p[n:], rb.buf[:avail-n])
	}

	rb.head += int64(n)
	rb.cond.Signal()
	return n, nil
}

// TryRead copies up to len(p) bytes into p without blocking. If the buffer
// is currently empty but still open for writing it returns (0, nil) rather
// than waiting for data, so a caller that must service many ring buffers in
// one pass (the mixer's per-track read) can move on instead of stalling on
// one starved input.
func (rb *RingBuffer) TryRead(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closeErr != nil {
		return 0, rb.closeErr
	}
	if rb.head == rb.tail {
		if rb.closeWrite {
			return 0, io.EOF
		}
		return 0, nil
	}

	avail := int(rb.tail - rb.head)
	head := int(rb.head % int64(len(rb.buf)))

	var n int
	if head+avail <= len(rb.buf) {
		n = copy(p, rb.buf[head:head+avail])
	} else {
		n = copy(p, rb.buf[head:])
		n += copy(p[n:], rb.buf[:avail-n])
	}

	rb.head += int64(n)
	rb.cond.Signal()
	return n, nil
}

// CloseWrite marks the buffer write-closed. Idempotent. Readers observe EOF
// once the remaining bytes are drained.
func (rb *RingBuffer) CloseWrite() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeWrite {
		return nil
	}
	rb.closeWrite = true
	rb.cond.Broadcast()
	return nil
}

// CloseWithError closes the buffer with err, discarding any unread bytes.
// Idempotent; the first error wins. If err is nil, io.ErrClosedPipe is used.
func (rb *RingBuffer) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		return nil
	}
	rb.closeErr = err
	rb.closeWrite = true
	rb.head = rb.tail
	rb.cond.Broadcast()
	return nil
}

// Error returns the error the buffer was closed with, if any.
func (rb *RingBuffer) Error() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.closeErr
}

// Len returns the number of unread bytes currently buffered.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.tail - rb.head)
}

// Cap returns the buffer's fixed capacity in bytes.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}
