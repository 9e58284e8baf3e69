// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package brickmem provides a tiered memory allocator with debug
// instrumentation, sitting directly above the host page allocator, for
// long-distance block-replication workloads on hot I/O paths.
//
// # Allocation surface
//
// Three front doors share one debug-instrumented core:
//
//	BlockAlloc(pos, len, site)   // len >= PageSize, order-indexed
//	Alloc(len, site)             // len < PageSize delegates to a kmalloc-equivalent
//	StringAlloc(len, site)       // zero-filled char buffer variant
//
// Each has a matching Free. BlockFree must be called with the original
// length; Free and StringFree recover it from the allocation header:
//
//	BlockFree(ptr, len, callerSite)
//	Free(ptr, callerSite)
//	StringFree(ptr, callerSite)
//
// # Order freelist pool
//
// Allocations at order > 0 are satisfied, in preference order, from a
// per-order LIFO freelist before falling back to the raw page source.
// Returned buffers are pushed back onto the freelist when the order's
// cached count is at or under its configured maximum; otherwise they go
// back to the host. See
// Reserve for bulk preallocation/drain.
//
// # Debug mode
//
// When Config.DebugMem is enabled (the default), every allocation above
// order 0 carries a magic-tagged header and trailer, and per-call-site
// counters are maintained. Corruption — a magic mismatch, a length
// mismatch, or a freelist next-pointer witness mismatch — is logged and
// the offending buffer is leaked rather than freed, to avoid cascading
// damage from a single bad actor.
//
// # Hierarchical rate limiter
//
// Package limiter implements an independent subsystem: nested rate
// limiters enforcing byte-rate and op-rate caps, returning the
// worst-case suggested delay across a parent chain.
//
// # Dependencies
//
// brickmem depends on:
//   - iox: ErrWouldBlock, the sentinel poolGet returns when an order's
//     freelist is empty (or corrupted), matching BoundedPool.tryGet's
//     contract in the teacher package
//   - spin: spin-wait primitives backing the per-order freelist locks
//   - zerolog: structured logging for the corruption/OOM boundary
package brickmem
