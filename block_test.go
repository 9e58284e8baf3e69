// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import "testing"

func TestBlockAllocFreeRoundTrip(t *testing.T) {
	Configure(WithDebugMem(true), WithMemPrealloc(false))

	const length = PageSize * 3
	payload, ok := BlockAlloc(0, length, 42)
	if !ok {
		t.Fatalf("BlockAlloc() ok=false")
	}
	if len(payload) != length {
		t.Fatalf("len(payload) = %d, want %d", len(payload), length)
	}
	for i := range payload {
		payload[i] = byte(i)
	}

	live, freed, lastLen := BlockStats(42)
	if live != 1 {
		t.Fatalf("BlockStats live = %d, want 1", live)
	}
	if lastLen != int64(length) {
		t.Fatalf("BlockStats lastLen = %d, want %d", lastLen, length)
	}

	BlockFree(payload, length, 42)

	live, freed, _ = BlockStats(42)
	if live != 0 {
		t.Fatalf("BlockStats live after free = %d, want 0", live)
	}
	if freed != 1 {
		t.Fatalf("BlockStats freed = %d, want 1", freed)
	}
}

func TestBlockAllocRejectsNegativePos(t *testing.T) {
	if _, ok := BlockAlloc(-1, PageSize, 0); ok {
		t.Fatalf("BlockAlloc() with negative pos ok=true, want false")
	}
}

func TestBlockAllocRejectsOversizedLength(t *testing.T) {
	huge := (PageSize << (MaxOrder + 2))
	if _, ok := BlockAlloc(0, huge, 0); ok {
		t.Fatalf("BlockAlloc() with oversized length ok=true, want false")
	}
}

func TestBlockFreeDetectsTrailerCorruption(t *testing.T) {
	Configure(WithDebugMem(true), WithMemPrealloc(false))

	const length = PageSize * 2
	payload, ok := BlockAlloc(0, length, 7)
	if !ok {
		t.Fatalf("BlockAlloc() ok=false")
	}

	writeUint32(payload, length, 0xDEADBEEF) // stomp the trailer

	liveBefore, _, _ := BlockStats(7)
	BlockFree(payload, length, 7)
	liveAfter, freedAfter, _ := BlockStats(7)

	if liveAfter != liveBefore {
		t.Fatalf("BlockStats live changed on corrupted free: before=%d after=%d", liveBefore, liveAfter)
	}
	if freedAfter != 0 {
		t.Fatalf("BlockStats freed = %d on corrupted free, want 0", freedAfter)
	}
}

func TestBlockFreeNilIsNoop(t *testing.T) {
	BlockFree(nil, PageSize, 0)
}
