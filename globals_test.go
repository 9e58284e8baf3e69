// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import "testing"

func TestGlobalMemLimitRoundTrip(t *testing.T) {
	SetGlobalMemLimit(1 << 20)
	if got := GlobalMemLimit(); got != 1<<20 {
		t.Fatalf("GlobalMemLimit() = %d, want %d", got, 1<<20)
	}
}

func TestAllowFreelistRoundTrip(t *testing.T) {
	SetAllowFreelist(false)
	if AllowFreelist() {
		t.Fatalf("AllowFreelist() = true, want false")
	}
	SetAllowFreelist(true)
	if !AllowFreelist() {
		t.Fatalf("AllowFreelist() = false, want true")
	}
}

func TestGlobalMemAvailIsSeededOnce(t *testing.T) {
	first := GlobalMemAvail()
	second := GlobalMemAvail()
	if first != second {
		t.Fatalf("GlobalMemAvail() changed between calls: %d then %d", first, second)
	}
}
