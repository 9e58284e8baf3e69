// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import "time"

// retrySleep is the fixed retry-on-OOM backoff, ported literally from
// the original source's msleep(1000) inside the MEM_RETRY loops.
const retrySleep = time.Second

// rawAlloc wraps the host page allocator: a run of PageSize*2^order
// contiguous bytes. Go has no portable direct equivalent of
// __get_free_pages without cgo, so rawAlloc uses make, the same
// boundary the teacher package leans on throughout buffers.go
// (AlignedMem, AlignedMemBlocks) rather than reimplementing mmap.
//
// With retry enabled (Config.MemRetry) a failed allocation sleeps
// ~1s and retries indefinitely, matching spec.md §4.1. With retry
// disabled, failure returns ok=false immediately. Go's make panics
// on allocation failure rather than returning nil/an error, so the
// no-retry path recovers that panic to produce the documented
// "returns null" contract.
func rawAlloc(order Order) (buf []byte, ok bool) {
	n := order.Bytes()
	if currentConfig().DebugMem {
		rawCount[order].Add(1)
	}
	buf, ok = retryMake(n)
	if !ok && currentConfig().DebugMem {
		rawCount[order].Add(-1)
	}
	return buf, ok
}

// hostAlloc is the "kmalloc-equivalent" used by the small allocator
// for requests under PageSize (spec.md C4). It shares the same
// OOM-retry contract as rawAlloc but is never order-indexed and never
// touches the raw_count accounting (the original only bumps raw_count
// around __get_free_pages, not kmalloc).
func hostAlloc(n int) (buf []byte, ok bool) {
	return retryMake(n)
}

// retryMake loops make() while Config.MemRetry is set and the host is
// out of memory, sleeping retrySleep between attempts; otherwise it
// reports failure immediately.
func retryMake(n int) (buf []byte, ok bool) {
	for {
		buf, ok = tryMake(n)
		if ok {
			return buf, true
		}
		if !currentConfig().MemRetry {
			return nil, false
		}
		time.Sleep(retrySleep)
	}
}

func tryMake(n int) (buf []byte, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			buf, ok = nil, false
		}
	}()
	return make([]byte, n), true
}

// rawFree returns buf to the host. GC reclaims the backing array; this
// only maintains debug bookkeeping, matching __brick_block_free's
// atomic_dec(&raw_count[order]) under BRICK_DEBUG_MEM.
func rawFree(buf []byte, order Order) {
	_ = buf
	if currentConfig().DebugMem {
		rawCount[order].Add(-1)
	}
}
