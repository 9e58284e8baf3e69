// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package limiter implements a hierarchical byte-rate and op-rate
// limiter (spec.md C8), ported field-for-field from the original
// source's mars_limit/mars_limit_sleep/mars_limit_reset.
//
// A Node tracks its own accumulators and an optional Parent; Limit
// walks the parent chain and returns the worst-case suggested delay,
// in milliseconds, across the whole chain. Nodes are safe for
// concurrent use: every field except Parent (set at construction) is
// an atomic, and the original's own
// design tolerates rare lost updates under contention rather than
// paying for a lock.
package limiter
