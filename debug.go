// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Per-order counters (C6), ported field-for-field from brick_mem.c's
// op_count/raw_count/alloc_count/alloc_max/alloc_line arrays.
var (
	opCount   [MaxOrder + 1]atomic.Int64
	rawCount  [MaxOrder + 1]atomic.Int64
	allocCount [MaxOrder + 1]atomic.Int64
	allocMax  [MaxOrder + 1]atomic.Int64
	allocSite [MaxOrder + 1]atomic.Int64
)

// Per-call-site counters (C6), one array per allocation surface.
var (
	blockCount [DebugSlots]atomic.Int64
	blockFree  [DebugSlots]atomic.Int64
	blockLen   [DebugSlots]atomic.Int64

	memCount [DebugSlots]atomic.Int64
	memFree  [DebugSlots]atomic.Int64
	memLen   [DebugSlots]atomic.Int64

	stringCount [DebugSlots]atomic.Int64
	stringFree  [DebugSlots]atomic.Int64
)

// BlockStats returns the live allocation count, free count, and last
// requested length recorded against site, for the block allocator.
func BlockStats(site int) (live, freed, lastLen int64) {
	site = clampSite(site)
	return blockCount[site].Load(), blockFree[site].Load(), blockLen[site].Load()
}

// MemStats returns the live allocation count, free count, and last
// requested length recorded against site, for the small allocator.
func MemStats(site int) (live, freed, lastLen int64) {
	site = clampSite(site)
	return memCount[site].Load(), memFree[site].Load(), memLen[site].Load()
}

// StringStats returns the live allocation count and free count
// recorded against site, for the string allocator.
func StringStats(site int) (live, freed int64) {
	site = clampSite(site)
	return stringCount[site].Load(), stringFree[site].Load()
}

// OrderStats returns the per-order operation count, raw host
// allocation count, live block-allocation count, and the high-water
// mark ever observed for that order.
func OrderStats(order Order) (ops, raw, alloc, max int64) {
	if order < 0 || order > MaxOrder {
		return 0, 0, 0, 0
	}
	return opCount[order].Load(), rawCount[order].Load(), allocCount[order].Load(), allocMax[order].Load()
}

// Statistics renders a human-readable accounting dump of every
// counter named in spec.md §4.6. The exact format is this library's
// own choice — spec.md §6 deliberately leaves formatting uncaptured —
// but every field brick_mem_statistics names is present.
func Statistics() string {
	var b strings.Builder

	b.WriteString("======== page allocation:\n")
	for i := 0; i <= MaxOrder; i++ {
		ops, raw, alloc, max := OrderStats(Order(i))
		fmt.Fprintf(&b, "pages order = %2d operations = %9d freelist_count = %4d / %3d raw_count = %5d alloc_count = %5d max_count = %5d\n",
			i, ops, PoolCount(Order(i)), PoolMax(Order(i)), raw, alloc, max)
	}

	dumpSites(&b, "block", blockCount[:], blockFree[:], blockLen[:])
	dumpSites(&b, "memory", memCount[:], memFree[:], memLen[:])
	dumpSitesNoLen(&b, "string", stringCount[:], stringFree[:])

	return b.String()
}

func dumpSites(b *strings.Builder, kind string, count, freed, lastLen []atomic.Int64) {
	total, places := int64(0), 0
	for i, c := range count {
		v := c.Load()
		if v == 0 {
			continue
		}
		total += v
		places++
		fmt.Fprintf(b, "site %4d: %6d allocated (last size = %4d, freed = %6d)\n", i, v, lastLen[i].Load(), freed[i].Load())
	}
	fmt.Fprintf(b, "======== %d %s allocations in %d places\n", total, kind, places)
}

func dumpSitesNoLen(b *strings.Builder, kind string, count, freed []atomic.Int64) {
	total, places := int64(0), 0
	for i, c := range count {
		v := c.Load()
		if v == 0 {
			continue
		}
		total += v
		places++
		fmt.Fprintf(b, "site %4d: %6d allocated (freed = %6d)\n", i, v, freed[i].Load())
	}
	fmt.Fprintf(b, "======== %d %s allocations in %d places\n", total, kind, places)
}
