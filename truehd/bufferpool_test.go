/*
NAME
  bufferpool_test.go

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package truehd

import "testing"

func TestBufferPoolAcquireRelease(t *testing.T) {
	p := NewBufferPool(2, 128)

	buf := p.Acquire()
	if len(buf) != 0 {
		t.Fatalf("Acquire() len = %d, want 0", len(buf))
	}
	if cap(buf) != 128 {
		t.Fatalf("Acquire() cap = %d, want 128", cap(buf))
	}

	buf = append(buf, 1, 2, 3)
	p.Release(buf)

	reused := p.Acquire()
	if len(reused) != 0 {
		t.Fatalf("Acquire() after Release len = %d, want 0", len(reused))
	}
	if cap(reused) < 128 {
		t.Fatalf("Acquire() after Release cap = %d, want >= 128", cap(reused))
	}
}

func TestBufferPoolCapacityBound(t *testing.T) {
	p := NewBufferPool(1, 16)

	a := p.Acquire()
	b := p.Acquire()
	p.Release(a)
	p.Release(b) // pool already holds one buffer; this one is dropped.

	if got := len(p.free); got != 1 {
		t.Errorf("pool holds %d idle buffers, want 1 (maxSize)", got)
	}
}

func TestNewDefaultBufferPool(t *testing.T) {
	p := NewDefaultBufferPool()
	if p.maxSize != defaultPoolSize {
		t.Errorf("NewDefaultBufferPool maxSize = %d, want %d", p.maxSize, defaultPoolSize)
	}
	if p.bufCap != defaultBufferCapacity {
		t.Errorf("NewDefaultBufferPool bufCap = %d, want %d", p.bufCap, defaultBufferCapacity)
	}
}
