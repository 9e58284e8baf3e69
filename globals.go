// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// GlobalMemAvail is the host's total RAM, in KiB, seeded once from
// /proc/meminfo on first use. It mirrors brick_global_memavail, which
// the original module seeded at init time via get_total_ram().
var globalMemAvail atomic.Int64

// GlobalMemLimit is an advisory cap, in KiB, consulted by callers
// external to this package; brickmem never enforces it internally,
// matching the original's brick_global_memlimit.
var globalMemLimit atomic.Int64

// allowFreelist is a runtime kill-switch for pooling on the block free
// path (spec.md §4.3 step 4). Flips are relaxed-ordered and take effect
// on subsequent calls, never mid-call.
var allowFreelist atomic.Bool

var memAvailOnce sync.Once

func init() {
	allowFreelist.Store(true)
}

// GlobalMemAvail returns the host's total RAM in KiB, probing it on
// first call.
func GlobalMemAvail() int64 {
	memAvailOnce.Do(seedMemAvail)
	return globalMemAvail.Load()
}

// SetGlobalMemAvail overrides the seeded RAM figure; mainly useful for
// tests and for hosts where /proc/meminfo is unavailable.
func SetGlobalMemAvail(kib int64) {
	memAvailOnce.Do(func() {})
	globalMemAvail.Store(kib)
}

// GlobalMemLimit returns the current advisory memory cap in KiB.
func GlobalMemLimit() int64 { return globalMemLimit.Load() }

// SetGlobalMemLimit sets the advisory memory cap in KiB.
func SetGlobalMemLimit(kib int64) { globalMemLimit.Store(kib) }

// AllowFreelist reports whether the block free path is currently
// permitted to return buffers to the order freelist pool.
func AllowFreelist() bool { return allowFreelist.Load() }

// SetAllowFreelist flips the freelist kill-switch.
func SetAllowFreelist(allow bool) { allowFreelist.Store(allow) }

// seedMemAvail reads total RAM from /proc/meminfo (Linux) and stores it
// in KiB, matching get_total_ram()'s "total RAM = %lld [KiB]" semantics.
// On platforms without /proc/meminfo, GlobalMemAvail stays 0 until a
// caller sets it explicitly via SetGlobalMemAvail.
func seedMemAvail() {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return
		}
		kib, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return
		}
		globalMemAvail.Store(kib)
		logger().Info("seeded total RAM", "kib", kib)
		return
	}
}
