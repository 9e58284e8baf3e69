// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

// plusSize returns the header/trailer overhead the small allocator
// reserves on top of the caller's requested length: 4 ints in debug
// mode ({MAGIC_MEM, len, site} prefix + MAGIC_END trailer slot), or a
// single int length prefix in release mode. Ported from PLUS_SIZE in
// the original source.
func plusSize() int {
	if currentConfig().DebugMem {
		return 4 * uint32Size
	}
	return 1 * uint32Size
}

// Alloc is the front door for len < PageSize allocations (spec.md C4).
// Requests that, once padded by the header overhead, reach PageSize
// are delegated to BlockAlloc with site forced to 0 — reproducing the
// original's __brick_mem_alloc, which always calls
// _brick_block_alloc(0, len, 0) regardless of the caller's site.
//
// May sleep: see BlockAlloc.
func Alloc(length int, site int) (payload []byte, ok bool) {
	plus := plusSize()
	total := length + plus

	var buf []byte
	if total >= PageSize {
		buf, ok = BlockAlloc(0, total, 0)
	} else {
		buf, ok = hostAlloc(total)
	}
	if !ok {
		return nil, false
	}

	cfg := currentConfig()
	if cfg.DebugMem {
		s := clampSite(site)
		writeUint32(buf, 0, magicMem)
		writeUint32(buf, uint32Size, uint32(length))
		writeUint32(buf, 2*uint32Size, uint32(s))
		payload = buf[3*uint32Size:]
		writeUint32(payload, length, magicEnd)
		memCount[s].Add(1)
		memLen[s].Store(int64(length))
		return payload[:length], true
	}

	writeUint32(buf, 0, uint32(length))
	return buf[uint32Size:][:length], true
}

// Free releases an allocation returned by Alloc. callerSite identifies
// the caller for corruption logging. Corruption (bad magic, bad site,
// bad trailer) is logged and the buffer is leaked rather than freed.
func Free(payload []byte, callerSite int) {
	if payload == nil {
		return
	}
	cfg := currentConfig()
	var length int
	var back int

	if cfg.DebugMem {
		back = 3 * uint32Size
		header := headerBefore(payload, back, back+len(payload))
		magic := readUint32(header, 0)
		l := int(readUint32(header, uint32Size))
		site := int(readUint32(header, 2*uint32Size))
		if magic != magicMem {
			logger().Error("memory corruption: bad magic", "caller_site", callerSite, "magic", magic, "len", l)
			return
		}
		if site < 0 || site >= DebugSlots {
			logger().Error("memory corruption: bad site", "caller_site", callerSite, "site", site, "len", l)
			return
		}
		trailer := readUint32(payload, l)
		if trailer != magicEnd {
			logger().Error("memory corruption: bad trailer", "caller_site", callerSite, "magic", trailer, "len", l)
			return
		}
		writeUint32(header, 0, poisoned)
		writeUint32(payload, l, poisoned)
		memCount[site].Add(-1)
		memFree[site].Add(1)
		length = l
	} else {
		back = uint32Size
		header := headerBefore(payload, back, back+len(payload))
		length = int(readUint32(header, 0))
	}

	total := length + plusSize()
	buf := headerBefore(payload, back, total)
	if total >= PageSize {
		BlockFree(buf, total, 0)
	} else {
		_ = buf // host allocation: reclaimed by the garbage collector
	}
}
