// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import (
	"testing"
	"unsafe"
)

func TestIoMapClampsLengthToPageBoundary(t *testing.T) {
	buf := make([]byte, PageSize*2)
	ptr := unsafe.Pointer(&buf[PageSize-10])

	offset := 0
	length := 64
	page := IoMap(ptr, &offset, &length)

	if offset != PageSize-10 {
		t.Fatalf("offset = %d, want %d", offset, PageSize-10)
	}
	if length != 10 {
		t.Fatalf("length = %d, want 10 (clamped to page boundary)", length)
	}
	if Page(uintptr(ptr)-uintptr(offset)) != page {
		t.Fatalf("IoMap() page does not match ptr minus offset")
	}
}

func TestIoMapWithCustomPredicate(t *testing.T) {
	buf := make([]byte, PageSize)
	ptr := unsafe.Pointer(&buf[4])

	var sawPtr unsafe.Pointer
	offset, length := 0, 16
	vmallocPage := IoMapWith(ptr, &offset, &length, func(p unsafe.Pointer) bool {
		sawPtr = p
		return true
	})
	if sawPtr != ptr {
		t.Fatalf("IoMapWith() called predicate with %v, want %v", sawPtr, ptr)
	}

	offset, length = 0, 16
	directPage := IoMapWith(ptr, &offset, &length, func(unsafe.Pointer) bool {
		return false
	})

	// brickmem has no vmalloc/direct-map split for addresses backed by
	// make(), so both branches land on the same page-aligned base; what
	// matters is that each went through its own resolver rather than
	// one shared computation that ignores the predicate's answer.
	if vmallocPage != directPage {
		t.Fatalf("IoMapWith() vmalloc branch = %v, direct branch = %v, want equal bases for a make()-backed address", vmallocPage, directPage)
	}
	if got := pageFromVmallocAddr(uintptr(ptr), offset); got != vmallocPage {
		t.Fatalf("IoMapWith(isVirtual=true) = %v, want pageFromVmallocAddr result %v", vmallocPage, got)
	}
	if got := pageFromDirectAddr(uintptr(ptr), offset); got != directPage {
		t.Fatalf("IoMapWith(isVirtual=false) = %v, want pageFromDirectAddr result %v", directPage, got)
	}
}
