// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import (
	"sync/atomic"
	"unsafe"

	"code.hybscloud.com/brickmem/internal"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// spinlock is a CAS-based mutual exclusion primitive with spin.Wait
// backoff between attempts — the same algorithmic shape the teacher
// package uses for its lock-free ring-buffer retries in
// BoundedPool.tryGet/tryPut. One spinlock guards one order's freelist;
// spec.md §5 forbids holding more than one order's lock at a time, and
// no suspension point (sleep, blocking channel op) ever runs while a
// spinlock is held.
type spinlock struct {
	_     noCopy
	state atomic.Bool
}

func (l *spinlock) Lock() {
	var sw spin.Wait
	for !l.state.CompareAndSwap(false, true) {
		sw.Once()
	}
}

func (l *spinlock) Unlock() {
	l.state.Store(false)
}

// poolNode is the real, GC-visible linked-list node for a pooled
// buffer. The spec's "first machine-pointer slot of the buffer is
// overwritten to form the LIFO" idiom is unsafe to implement literally
// in Go: storing a raw pointer inside a []byte via unsafe casts hides
// it from the garbage collector, and the buffer holding the "next"
// pointer could be collected out from under the list. poolNode keeps
// the actual chain in ordinary Go memory; the raw buffer bytes instead
// carry a corruption witness (writeWitness/checkWitness below) that
// reproduces the spec's "use-after-put is cheap to detect" property
// without defeating the garbage collector.
type poolNode struct {
	buf  []byte
	next *poolNode
}

var witnessSlotSize = int(unsafe.Sizeof(uintptr(0)))

// writeWitness stamps buf's own identity twice into its first two
// pointer-sized slots. At get time, checkWitness re-reads both copies
// and compares them: if anything scribbled into only part of that
// region while the buffer sat idle in the pool, the two copies diverge.
func writeWitness(buf []byte) {
	if len(buf) < 2*witnessSlotSize {
		return
	}
	base := unsafe.Pointer(unsafe.SliceData(buf))
	self := uintptr(base)
	*(*uintptr)(base) = self
	*(*uintptr)(unsafe.Add(base, witnessSlotSize)) = self
}

func checkWitness(buf []byte) bool {
	if len(buf) < 2*witnessSlotSize {
		return true
	}
	base := unsafe.Pointer(unsafe.SliceData(buf))
	a := *(*uintptr)(base)
	b := *(*uintptr)(unsafe.Add(base, witnessSlotSize))
	return a == b
}

// orderPool is the per-order LIFO cache of returned allocations, padded
// to a cache line to avoid false sharing between adjacent orders'
// lock/count/head fields — reusing the teacher's own
// internal.CacheLineSize arch-detection helper for the padding width.
type orderPool struct {
	lock  spinlock
	head  *poolNode
	count atomic.Int64
	max   atomic.Int64
	_pad  [internal.CacheLineSize]byte
}

var pools [MaxOrder + 1]orderPool

// poolGet pops the LIFO under order's lock, returning iox.ErrWouldBlock
// when the pool has nothing to give — the same sentinel the teacher's
// BoundedPool.tryGet returns on an empty ring (bounded_pool.go), so
// callers that want to block and retry can drive poolGet with an
// iox.Backoff exactly as BoundedPool.Get drives tryGet. In debug mode
// poolGet also validates the duplicated witness before detaching the
// node; on mismatch it drops the whole remaining list (accepting a
// leak, per spec.md §4.2), logs a corruption error, and reports the
// same ErrWouldBlock sentinel since the caller's remedy is identical:
// fall back to a raw allocation.
func poolGet(order Order) (buf []byte, err error) {
	p := &pools[order]
	p.lock.Lock()
	node := p.head
	if node == nil {
		p.lock.Unlock()
		return nil, iox.ErrWouldBlock
	}
	if currentConfig().DebugMem && !checkWitness(node.buf) {
		p.head = nil
		dropped := p.count.Swap(0)
		p.lock.Unlock()
		logger().Error("freelist corruption", "order", int(order), "count", dropped)
		return nil, iox.ErrWouldBlock
	}
	p.head = node.next
	p.lock.Unlock()
	p.count.Add(-1)
	return node.buf, nil
}

// poolPut pushes buf onto order's LIFO, writing the corruption witness
// in debug mode. No max-check happens here: capacity policing for the
// block free path lives in BlockFree (spec.md §4.2, §4.3 step 4).
func poolPut(order Order, buf []byte) {
	if currentConfig().DebugMem {
		writeWitness(buf)
	}
	node := &poolNode{buf: buf}
	p := &pools[order]
	p.lock.Lock()
	node.next = p.head
	p.head = node
	p.lock.Unlock()
	p.count.Add(1)
}

// poolDrain pops every buffer at order and returns it to the raw page
// source, emptying the pool.
func poolDrain(order Order) {
	for {
		buf, err := poolGet(order)
		if err != nil {
			return
		}
		rawFree(buf, order)
	}
}

// PoolCount returns the number of buffers currently cached at order.
func PoolCount(order Order) int64 {
	if order < 0 || order > MaxOrder {
		return 0
	}
	return pools[order].count.Load()
}

// PoolMax returns the current high-water cap for order.
func PoolMax(order Order) int64 {
	if order < 0 || order > MaxOrder {
		return 0
	}
	return pools[order].max.Load()
}
