// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import "testing"

func TestStringAllocFreeRoundTrip(t *testing.T) {
	Configure(WithDebugMem(true))

	payload, ok := StringAlloc(16, 3)
	if !ok {
		t.Fatalf("StringAlloc() ok=false")
	}
	if len(payload) != 16 {
		t.Fatalf("len(payload) = %d, want 16", len(payload))
	}
	for _, b := range payload {
		if b != 0 {
			t.Fatalf("StringAlloc() did not return zero-filled storage")
		}
	}

	live, _ := StringStats(3)
	if live != 1 {
		t.Fatalf("StringStats live = %d, want 1", live)
	}

	StringFree(payload, 3)

	live, freed := StringStats(3)
	if live != 0 {
		t.Fatalf("StringStats live after free = %d, want 0", live)
	}
	if freed != 1 {
		t.Fatalf("StringStats freed = %d, want 1", freed)
	}
}

func TestStringAllocDefaultLength(t *testing.T) {
	Configure(WithDebugMem(true))

	payload, ok := StringAlloc(0, 0)
	if !ok {
		t.Fatalf("StringAlloc() ok=false")
	}
	if len(payload) != DefaultStringLen {
		t.Fatalf("len(payload) = %d, want %d", len(payload), DefaultStringLen)
	}
	StringFree(payload, 0)
}

func TestStringFreeDetectsTrailerCorruption(t *testing.T) {
	Configure(WithDebugMem(true))

	payload, ok := StringAlloc(24, 4)
	if !ok {
		t.Fatalf("StringAlloc() ok=false")
	}
	writeUint32(payload, 24, 0)

	liveBefore, _ := StringStats(4)
	StringFree(payload, 4)
	liveAfter, freedAfter := StringStats(4)

	if liveAfter != liveBefore {
		t.Fatalf("StringStats live changed on corrupted free: before=%d after=%d", liveBefore, liveAfter)
	}
	if freedAfter != 0 {
		t.Fatalf("StringStats freed = %d on corrupted free, want 0", freedAfter)
	}
}

func TestStringFreeNilIsNoop(t *testing.T) {
	StringFree(nil, 0)
}
