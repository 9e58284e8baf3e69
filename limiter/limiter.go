// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package limiter

import (
	"math"
	"sync/atomic"
	"time"
)

// processStart anchors Node's "now" samples to the monotonic clock
// reading carried inside time.Time, avoiding wall-clock jumps without
// needing an unexported runtime hook.
var processStart = time.Now()

func nowNanos() int64 {
	return int64(time.Since(processStart))
}

// Node is one point in a rate-limiter hierarchy. The zero Node is
// ready to use with default windows and no configured caps (meaning
// Limit never reports a delay for it).
type Node struct {
	Parent *Node

	stamp atomic.Int64

	minWindowMs atomic.Int64
	maxWindowMs atomic.Int64
	maxDelayMs  atomic.Int64

	maxAmountRate atomic.Int64
	maxOpsRate    atomic.Int64

	totalAmount atomic.Uint64
	totalOps    atomic.Uint64

	amountAccu  atomic.Int64
	amountCumul atomic.Int64
	opsAccu     atomic.Int64
	opsCumul    atomic.Int64

	amountRate atomic.Int64
	opsRate    atomic.Int64
}

// Option configures a Node at construction time.
type Option func(*Node)

// WithMinWindowMs sets the minimum averaging window; non-positive
// values are ignored (the runtime default of 1000ms applies instead).
func WithMinWindowMs(ms int64) Option {
	return func(n *Node) { n.minWindowMs.Store(ms) }
}

// WithMaxWindowMs sets the pause threshold beyond which a Node resets
// its accumulators instead of accumulating incrementally.
func WithMaxWindowMs(ms int64) Option {
	return func(n *Node) { n.maxWindowMs.Store(ms) }
}

// WithMaxDelayMs caps the delay Sleep will actually wait for.
func WithMaxDelayMs(ms int64) Option {
	return func(n *Node) { n.maxDelayMs.Store(ms) }
}

// WithMaxAmountRate sets the byte-rate cap, in units per second; zero
// or negative disables the amount-rate check.
func WithMaxAmountRate(rate int64) Option {
	return func(n *Node) { n.maxAmountRate.Store(rate) }
}

// WithMaxOpsRate sets the op-rate cap, in operations per second; zero
// or negative disables the op-rate check.
func WithMaxOpsRate(rate int64) Option {
	return func(n *Node) { n.maxOpsRate.Store(rate) }
}

// New creates a Node with the given parent (nil for a root) and
// options applied.
func New(parent *Node, opts ...Option) *Node {
	n := &Node{Parent: parent}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

const nsPerSecond = int64(time.Second)

// Limit records amount against node and every ancestor on its parent
// chain, and returns the largest suggested delay, in milliseconds,
// across the whole chain (spec.md C8). A negative amount is treated
// as zero.
//
// Limit never sleeps; pair it with Sleep to apply the delay, or call
// it standalone to only observe the current suggested delay.
func Limit(node *Node, amount int) int64 {
	if amount < 0 {
		amount = 0
	}
	now := nowNanos()

	var delay int64
	for n := node; n != nil; n = n.Parent {
		minWindowMs := n.minWindowMs.Load()
		if minWindowMs <= 0 {
			minWindowMs = 1000
			n.minWindowMs.Store(minWindowMs)
		}
		maxWindowMs := n.maxWindowMs.Load()
		if maxWindowMs <= minWindowMs {
			maxWindowMs = minWindowMs + 8000
			n.maxWindowMs.Store(maxWindowMs)
		}
		minWindowNs := minWindowMs * int64(time.Millisecond)
		maxWindowNs := maxWindowMs * int64(time.Millisecond)

		stamp := n.stamp.Load()
		window := now - stamp
		if window < minWindowNs {
			window = minWindowNs
		}

		if amount > 0 {
			n.totalAmount.Add(uint64(amount))
			n.totalOps.Add(1)
		}

		if stamp != 0 && window < maxWindowNs {
			if amount > 0 {
				n.amountAccu.Add(int64(amount))
				n.amountCumul.Add(int64(amount))
				n.opsAccu.Add(1)
				n.opsCumul.Add(1)
			}

			amountRate := clampRate(n.amountAccu.Load() * nsPerSecond / window)
			n.amountRate.Store(amountRate)
			if maxRate := n.maxAmountRate.Load(); maxRate > 0 && amountRate > maxRate {
				if d := delayFor(window, amountRate, maxRate); d > delay {
					delay = d
				}
			}

			opsRate := clampRate(n.opsAccu.Load() * nsPerSecond / window)
			n.opsRate.Store(opsRate)
			if maxRate := n.maxOpsRate.Load(); maxRate > 0 && opsRate > maxRate {
				if d := delayFor(window, opsRate, maxRate); d > delay {
					delay = d
				}
			}

			// Keep the next window below min_window. The original
			// source advances lim_stamp once per accumulator that
			// actually decayed, so a call where both the amount and
			// ops accumulators decay moves the stamp twice in one
			// pass; reproduced here rather than fixed.
			w := window - minWindowNs
			if w > 0 {
				if used := amountRate * w / nsPerSecond; used > 0 {
					n.stamp.Add(w)
					if n.amountAccu.Add(-used) < 0 {
						n.amountAccu.Store(0)
					}
				}
				if used := opsRate * w / nsPerSecond; used > 0 {
					n.stamp.Add(w)
					if n.opsAccu.Add(-used) < 0 {
						n.opsAccu.Store(0)
					}
				}
			}
		} else {
			n.opsAccu.Store(1)
			n.amountAccu.Store(int64(amount))
			n.stamp.Store(now - minWindowNs)
			n.amountRate.Store(0)
			n.opsRate.Store(0)
		}
	}
	return delay
}

func clampRate(rate int64) int64 {
	if rate > math.MaxInt32 {
		return math.MaxInt32
	}
	return rate
}

func delayFor(window, rate, maxRate int64) int64 {
	d := (window*rate/maxRate - window) / int64(time.Millisecond)
	if d > 0 {
		return d
	}
	return 0
}

// Sleep calls Limit and blocks for the returned delay, capped at
// node's configured max delay (default 1000ms).
func Sleep(node *Node, amount int) {
	delay := Limit(node, amount)
	if delay <= 0 {
		return
	}
	maxDelay := node.maxDelayMs.Load()
	if maxDelay <= 0 {
		maxDelay = 1000
		node.maxDelayMs.Store(maxDelay)
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	time.Sleep(time.Duration(delay) * time.Millisecond)
}

// Reset clears node's stamp and re-initializes it via a zero-amount
// Limit call, matching mars_limit_reset.
func Reset(node *Node) {
	node.stamp.Store(0)
	Limit(node, 0)
}

// Stats reports node's current totals and rates for observability.
func (n *Node) Stats() (totalAmount, totalOps uint64, amountRate, opsRate int64) {
	return n.totalAmount.Load(), n.totalOps.Load(), n.amountRate.Load(), n.opsRate.Load()
}
