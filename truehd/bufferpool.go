/*
NAME
  bufferpool.go

DESCRIPTION
  bufferpool.go is a thread-safe pool of reusable byte slices, used by
  the Extractor to avoid a per-frame allocation (spec.md §4.1 step 5:
  "A pooled buffer is used per frame to avoid per-frame allocation").
  Grounded on utils/buffer_pool.rs's VecDeque-backed pool; the defaults
  (16 buffers, 64 KiB each) are taken verbatim from its Default impl.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import "sync"

// defaultPoolSize and defaultBufferCapacity match the teacher pool's
// defaults: enough buffers in flight to cover a few access units of
// pipeline lag, each pre-sized above a typical AU.
const (
	defaultPoolSize       = 16
	defaultBufferCapacity = 64 * 1024
)

// BufferPool hands out reusable, zero-length byte slices and reclaims
// them on Release.
type BufferPool struct {
	mu      sync.Mutex
	free    [][]byte
	maxSize int
	bufCap  int
}

// NewBufferPool returns a BufferPool holding at most maxSize idle
// buffers, each newly allocated with bufCap capacity.
func NewBufferPool(maxSize, bufCap int) *BufferPool {
	return &BufferPool{
		free:    make([][]byte, 0, maxSize),
		maxSize: maxSize,
		bufCap:  bufCap,
	}
}

// NewDefaultBufferPool returns a BufferPool using the teacher's default
// sizing.
func NewDefaultBufferPool() *BufferPool {
	return NewBufferPool(defaultPoolSize, defaultBufferCapacity)
}

// Acquire returns an idle buffer from the pool, or a freshly allocated
// one if the pool is empty.
func (p *BufferPool) Acquire() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return make([]byte, 0, p.bufCap)
	}
	buf := p.free[n-1]
	p.free = p.free[:n-1]
	return buf[:0]
}

// Release returns buf to the pool for reuse, dropping it if the pool is
// already at capacity.
func (p *BufferPool) Release(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) < p.maxSize {
		p.free = append(p.free, buf[:0])
	}
}
