// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package limiter_test

import (
	"testing"
	"time"

	"code.hybscloud.com/brickmem/limiter"
)

func TestLimitColdStartReturnsNoDelay(t *testing.T) {
	node := limiter.New(nil, limiter.WithMaxAmountRate(1000))
	if delay := limiter.Limit(node, 10); delay != 0 {
		t.Fatalf("Limit() on cold node = %d, want 0", delay)
	}
}

func TestLimitExceedingRateSuggestsDelay(t *testing.T) {
	node := limiter.New(nil, limiter.WithMinWindowMs(1), limiter.WithMaxAmountRate(1))

	limiter.Limit(node, 1000) // cold start, establishes the stamp
	time.Sleep(2 * time.Millisecond)

	delay := limiter.Limit(node, 1000000)
	if delay <= 0 {
		t.Fatalf("Limit() over the configured rate = %d, want > 0", delay)
	}
}

func TestLimitUnconfiguredNeverDelays(t *testing.T) {
	node := limiter.New(nil)
	limiter.Limit(node, 1000)
	time.Sleep(2 * time.Millisecond)
	if delay := limiter.Limit(node, 1000000); delay != 0 {
		t.Fatalf("Limit() with no rate cap = %d, want 0", delay)
	}
}

func TestLimitWalksParentChain(t *testing.T) {
	parent := limiter.New(nil, limiter.WithMinWindowMs(1), limiter.WithMaxAmountRate(1))
	child := limiter.New(parent, limiter.WithMinWindowMs(1))

	limiter.Limit(child, 1000)
	time.Sleep(2 * time.Millisecond)

	delay := limiter.Limit(child, 1000000)
	if delay <= 0 {
		t.Fatalf("Limit() did not propagate parent's rate cap: delay = %d", delay)
	}
}

func TestResetClearsStamp(t *testing.T) {
	node := limiter.New(nil, limiter.WithMaxAmountRate(1))
	limiter.Limit(node, 10)
	limiter.Reset(node)

	totalAmount, totalOps, amountRate, opsRate := node.Stats()
	if amountRate != 0 || opsRate != 0 {
		t.Fatalf("Stats() rates after Reset = %d,%d, want 0,0", amountRate, opsRate)
	}
	_ = totalAmount
	_ = totalOps
}

func TestSleepRespectsMaxDelay(t *testing.T) {
	node := limiter.New(nil, limiter.WithMinWindowMs(1), limiter.WithMaxAmountRate(1), limiter.WithMaxDelayMs(5))

	limiter.Limit(node, 1000)
	time.Sleep(2 * time.Millisecond)

	start := time.Now()
	limiter.Sleep(node, 1000000)
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Sleep() took %v, want capped near max delay", elapsed)
	}
}
