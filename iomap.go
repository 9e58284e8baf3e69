// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import "unsafe"

// Page identifies the host page backing a byte range, as a pointer to
// that page's first byte. brickmem has no kernel struct page
// equivalent; the base address itself is the only stable identity Go
// can hand back without cgo.
type Page uintptr

// IsVirtual reports whether ptr falls on the vmalloc-equivalent path
// rather than the physically-contiguous one, mirroring brick_iomap's
// is_vmalloc_addr discrimination. brickmem only ever services pages
// through make(), which has no vmalloc/kmalloc split, so the package
// default always reports false (spec.md §9 Open Question 3). Callers
// that front a real vmalloc-backed arena may override this via
// IoMapWith.
var IsVirtual = func(ptr unsafe.Pointer) bool {
	return false
}

// IoMap locates the page containing ptr (spec.md §6 io_map). offset
// receives the intra-page byte offset of ptr; length is clamped
// in place to the remaining bytes in that page and must not exceed
// the caller's intended read/write span on entry.
func IoMap(ptr unsafe.Pointer, offset *int, length *int) Page {
	return ioMap(ptr, offset, length, IsVirtual)
}

// IoMapWith is IoMap with an explicit virtual-address predicate,
// letting callers that front a non-default allocator supply their own
// is-virtual test instead of the package-level IsVirtual.
func IoMapWith(ptr unsafe.Pointer, offset *int, length *int, isVirtual func(unsafe.Pointer) bool) Page {
	return ioMap(ptr, offset, length, isVirtual)
}

func ioMap(ptr unsafe.Pointer, offset *int, length *int, isVirtual func(unsafe.Pointer) bool) Page {
	addr := uintptr(ptr)
	off := int(addr & uintptr(PageSize-1))
	*offset = off
	if *length > PageSize-off {
		*length = PageSize - off
	}
	if isVirtual(ptr) {
		return pageFromVmallocAddr(addr, off)
	}
	return pageFromDirectAddr(addr, off)
}

// pageFromVmallocAddr resolves the page for an address the predicate
// identified as vmalloc-equivalent, mirroring brick_iomap's
// vmalloc_to_page branch. Go has no page-table walk to perform here,
// so this lands on the same page-aligned base address as
// pageFromDirectAddr; the branch exists so a caller fronting a real
// split address space (IsVirtual actually returning true for some
// pointers) has a distinct place to diverge instead of that
// distinction being silently discarded.
func pageFromVmallocAddr(addr uintptr, off int) Page {
	return Page(addr - uintptr(off))
}

// pageFromDirectAddr resolves the page for an address the predicate
// identified as directly mapped, mirroring brick_iomap's
// virt_to_page branch.
func pageFromDirectAddr(addr uintptr, off int) Page {
	return Page(addr - uintptr(off))
}
