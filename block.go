// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

import "unsafe"

const uint32Size = int(unsafe.Sizeof(uint32(0)))

// blockPlus returns the extra header/trailer space a block allocation
// needs, in debug mode, on top of the caller's requested length.
// Ported from brick_mem.c: `const int plus = len <= PAGE_SIZE ? 0 :
// PAGE_SIZE * 2`.
func blockPlus(length int) int {
	if !currentConfig().DebugMem || length <= PageSize {
		return 0
	}
	return PageSize * 2
}

// BlockAlloc is the front door for len >= PageSize allocations
// (spec.md C3). pos is reserved for future use and is currently
// unused, but negative values are rejected (spec.md §9 Open Question
// 2). site identifies the call site for per-call-site accounting.
//
// May sleep: BlockAlloc can block indefinitely when Config.MemRetry is
// set and the host allocator is out of memory. Callers must not invoke
// it from a context that forbids sleeping.
func BlockAlloc(pos int64, length int, site int) (payload []byte, ok bool) {
	if pos < 0 {
		return nil, false
	}
	plus := blockPlus(length)
	order, valid := orderOf(length + plus)
	if !valid {
		logger().Error("trying to allocate bad block size", "len", length)
		return nil, false
	}

	cfg := currentConfig()
	if cfg.DebugMem {
		opCount[order].Add(1)
		count := allocCount[order].Add(1)
		allocSite[order].Store(int64(clampSite(site)))
		for {
			prev := allocMax[order].Load()
			if count <= prev || allocMax[order].CompareAndSwap(prev, count) {
				break
			}
		}
		if cfg.MemPrealloc && order > 0 && count <= int64(cfg.AllowDynamicRaise) {
			for {
				prevMax := pools[order].max.Load()
				if count <= prevMax || pools[order].max.CompareAndSwap(prevMax, count) {
					break
				}
			}
		}
	}

	var buf []byte
	if cfg.MemPrealloc {
		var perr error
		buf, perr = poolGet(order)
		ok = perr == nil
	}
	if !ok {
		buf, ok = rawAlloc(order)
		if !ok {
			if cfg.DebugMem {
				allocCount[order].Add(-1)
			}
			return nil, false
		}
	}

	if cfg.DebugMem && order > 0 {
		s := clampSite(site)
		writeUint32(buf, 0*uint32Size, magicBlock)
		writeUint32(buf, 1*uint32Size, uint32(s))
		writeUint32(buf, 2*uint32Size, uint32(length))
		payload = buf[PageSize : PageSize+length]
		writeUint32(payload, length, magicBEnd)
		blockCount[s].Add(1)
		blockLen[s].Store(int64(length))
		return payload, true
	}
	return buf[:length], true
}

// BlockFree releases a block allocation returned by BlockAlloc. length
// must match the original allocation exactly; callerSite identifies
// the caller for corruption logging.
//
// On any corruption signal (magic mismatch, site out of range, stored
// length mismatch, or trailer mismatch) the buffer is deliberately
// leaked and never freed, to avoid cascading damage — spec.md §7.
func BlockFree(payload []byte, length int, callerSite int) {
	if payload == nil {
		return
	}
	plus := blockPlus(length)
	order, valid := orderOf(length + plus)
	if !valid {
		return
	}

	cfg := currentConfig()
	var buf []byte
	if cfg.DebugMem && order > 0 {
		base := unsafe.Add(unsafe.Pointer(unsafe.SliceData(payload)), -PageSize)
		header := unsafe.Slice((*byte)(base), PageSize+length+uint32Size)

		magic := readUint32(header, 0)
		site := int(readUint32(header, uint32Size))
		oldLen := int(readUint32(header, 2*uint32Size))
		if magic != magicBlock {
			logger().Error("block memory corruption: bad magic", "caller_site", callerSite, "magic", magic)
			return
		}
		if site < 0 || site >= DebugSlots {
			logger().Error("block memory corruption: bad site", "caller_site", callerSite, "site", site)
			return
		}
		if oldLen != length {
			logger().Error("block memory corruption: length mismatch", "caller_site", callerSite, "len", length, "stored_len", oldLen)
			return
		}
		trailer := readUint32(payload, length)
		if trailer != magicBEnd {
			logger().Error("block memory corruption: bad trailer", "caller_site", callerSite, "magic", trailer)
			return
		}

		writeUint32(header, 0, poisoned)
		writeUint32(payload, length, poisoned)
		blockCount[site].Add(-1)
		blockFree[site].Add(1)

		buf = unsafe.Slice((*byte)(base), order.Bytes())
	} else {
		base := unsafe.Pointer(unsafe.SliceData(payload))
		buf = unsafe.Slice((*byte)(base), order.Bytes())
	}

	if cfg.MemPrealloc && order > 0 && AllowFreelist() && PoolCount(order) <= PoolMax(order) {
		poolPut(order, buf)
	} else {
		rawFree(buf, order)
	}

	if cfg.DebugMem {
		allocCount[order].Add(-1)
	}
}

// headerBefore reconstructs a slice that starts back bytes before
// payload's first byte and runs for total bytes, by walking payload's
// base pointer backwards. Used by the small and block allocators to
// recover the header (and, at free time, the full underlying buffer)
// from the payload slice alone.
func headerBefore(payload []byte, back, total int) []byte {
	base := unsafe.Add(unsafe.Pointer(unsafe.SliceData(payload)), -back)
	return unsafe.Slice((*byte)(base), total)
}

func writeUint32(buf []byte, offset int, v uint32) {
	*(*uint32)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(buf)), offset)) = v
}

func readUint32(buf []byte, offset int) uint32 {
	return *(*uint32)(unsafe.Add(unsafe.Pointer(unsafe.SliceData(buf)), offset))
}
