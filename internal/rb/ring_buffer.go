// Package rb provides a bounded generic ring buffer that blocks
// producers when it is full and consumers when it is empty.
package rb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/cpu"
)

var (
	// ErrClosed is returned when the buffer is closed.
	ErrClosed = errors.New("ring buffer: buffer is closed")

	// ErrInvalidCapacity is returned when the buffer is created
	// with a capacity lower than one.
	ErrInvalidCapacity = errors.New("ring buffer: capacity must be greater than zero")

	// ErrInvariant is the error carried by the panic raised when
	// the internal state of the buffer is found inconsistent.
	ErrInvariant = errors.New("ring buffer: invariant violated")
)

// RingBuffer is a fixed capacity FIFO ring buffer safe for
// multiple producers and consumers.
//
// Free and filled slots are tracked by two counting semaphores,
// while the slots and the cursors are guarded by a single mutex.
// A caller always acquires a semaphore unit before entering the mutex,
// so nobody ever blocks while holding it.
type RingBuffer[T any] struct {
	// writable counts the free slots, it starts with all the units available
	writable *semaphore.Weighted

	_ cpu.CacheLinePad

	// readable counts the filled slots, it starts with no units available
	readable *semaphore.Weighted

	_ cpu.CacheLinePad

	mux   sync.Mutex
	slots []slot[T]
	cur   cursors

	_ cpu.CacheLinePad

	isClosed atomic.Bool

	// closing is canceled by Close to wake up the blocked callers
	closing       context.Context
	cancelClosing context.CancelFunc
}

// NewRingBuffer returns a new ring buffer with the given capacity.
// All the slots are empty.
func NewRingBuffer[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}

	readable := semaphore.NewWeighted(int64(capacity))
	if !readable.TryAcquire(int64(capacity)) {
		return nil, errors.New("ring buffer: failed to initialize the readable slots counter")
	}

	closing, cancelClosing := context.WithCancel(context.Background())

	return &RingBuffer[T]{
		writable: semaphore.NewWeighted(int64(capacity)),
		readable: readable,

		slots: make([]slot[T], capacity),
		cur: cursors{
			capacity: capacity,
		},

		closing:       closing,
		cancelClosing: cancelClosing,
	}, nil
}

// acquire takes one unit from the semaphore. It blocks until a unit is available,
// the context is done or the buffer is closed.
// A context already done fails even when a unit is free.
func (rb *RingBuffer[T]) acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if sem.TryAcquire(1) {
		return nil
	}

	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()

	stop := context.AfterFunc(rb.closing, cancelWait)
	defer stop()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return ErrClosed
	}

	return nil
}

// Publish stores the item in the next free slot and returns its index.
// It blocks until a slot is free. It returns an error only when the context
// is done or the buffer is closed, in which case the buffer is left untouched.
func (rb *RingBuffer[T]) Publish(ctx context.Context, item T) (int, error) {
	if rb.isClosed.Load() {
		return -1, ErrClosed
	}

	if err := rb.acquire(ctx, rb.writable); err != nil {
		return -1, err
	}

	rb.mux.Lock()

	if rb.isClosed.Load() {
		rb.mux.Unlock()
		rb.writable.Release(1)
		return -1, ErrClosed
	}

	slotIdx := rb.store(item)

	rb.mux.Unlock()

	rb.readable.Release(1)

	return slotIdx, nil
}

// Take removes and returns the oldest item.
// It blocks until an item is available. Once the buffer is closed,
// it keeps returning the remaining items and then ErrClosed.
func (rb *RingBuffer[T]) Take(ctx context.Context) (T, error) {
	if err := rb.acquireReadable(ctx); err != nil {
		return *new(T), err
	}

	rb.mux.Lock()
	item := rb.load()
	rb.mux.Unlock()

	rb.writable.Release(1)

	return item, nil
}

func (rb *RingBuffer[T]) acquireReadable(ctx context.Context) error {
	err := rb.acquire(ctx, rb.readable)
	if err == nil || !errors.Is(err, ErrClosed) {
		return err
	}

	// The buffer is closed, but a producer may have stored an item
	// without having released the readable unit yet
	for rb.Len() > 0 {
		if rb.readable.TryAcquire(1) {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		runtime.Gosched()
	}

	return ErrClosed
}

func (rb *RingBuffer[T]) store(item T) int {
	s := &rb.slots[rb.cur.writePos]
	if s.occupied {
		panic(fmt.Errorf("%w: slot %d written while still occupied", ErrInvariant, rb.cur.writePos))
	}

	s.data = item
	s.occupied = true

	pos := rb.cur.advanceWrite()
	rb.mustCheck()

	return pos
}

func (rb *RingBuffer[T]) load() T {
	s := &rb.slots[rb.cur.readPos]
	if !s.occupied {
		panic(fmt.Errorf("%w: slot %d read while empty", ErrInvariant, rb.cur.readPos))
	}

	item := s.data
	s.data = *new(T)
	s.occupied = false

	rb.cur.advanceRead()
	rb.mustCheck()

	return item
}

func (rb *RingBuffer[T]) mustCheck() {
	if err := rb.cur.check(); err != nil {
		panic(err)
	}
}

// Len returns the number of items in the buffer.
func (rb *RingBuffer[T]) Len() int {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return rb.cur.filled
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return rb.cur.capacity
}

// IsClosed states whether the buffer is closed.
func (rb *RingBuffer[T]) IsClosed() bool {
	return rb.isClosed.Load()
}

// Close closes the buffer and wakes up all the blocked callers.
// It is safe to call it more than once.
func (rb *RingBuffer[T]) Close() {
	rb.mux.Lock()
	wasClosed := rb.isClosed.Swap(true)
	rb.mux.Unlock()

	if wasClosed {
		return
	}

	rb.cancelClosing()
}
