// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

// DefaultStringLen is the fallback length used by StringAlloc when the
// caller passes length <= 0. The original source's BRICK_STRING_LEN
// constant was not present in the retrieved sources; 1024 matches the
// scale of the debug slack the original reserves around string
// allocations.
const DefaultStringLen = 1024

// stringDebugSlack is the over-allocation the original source adds in
// debug builds. It follows the trailer, so a write that overruns the
// trailer still lands inside the allocation.
const stringDebugSlack = 1024

// StringAlloc returns a zero-filled buffer of length bytes (spec.md
// C5). A non-positive length is replaced by DefaultStringLen. In debug
// mode the header stores the full length including the four-int
// overhead (ported literally from _brick_string_alloc, which mutates
// len in place before writing it into the header), and storage is
// over-allocated by stringDebugSlack bytes.
//
// May sleep: see Alloc.
func StringAlloc(length int, site int) (payload []byte, ok bool) {
	if length <= 0 {
		length = DefaultStringLen
	}

	cfg := currentConfig()
	if !cfg.DebugMem {
		buf, ok := hostAlloc(length)
		if !ok {
			return nil, false
		}
		return buf, true
	}

	totalLen := length + 4*uint32Size
	buf, ok := hostAlloc(totalLen + stringDebugSlack)
	if !ok {
		return nil, false
	}

	s := clampSite(site)
	writeUint32(buf, 0, magicStr)
	writeUint32(buf, uint32Size, uint32(totalLen))
	writeUint32(buf, 2*uint32Size, uint32(s))
	payload = buf[3*uint32Size:]
	writeUint32(payload, length, magicEnd)
	stringCount[s].Add(1)
	return payload[:length], true
}

// StringFree releases a buffer returned by StringAlloc. callerSite
// identifies the caller for corruption logging.
func StringFree(payload []byte, callerSite int) {
	if payload == nil {
		return
	}
	cfg := currentConfig()
	if !cfg.DebugMem {
		return
	}

	header := headerBefore(payload, 3*uint32Size, 3*uint32Size+len(payload))
	magic := readUint32(header, 0)
	totalLen := int(readUint32(header, uint32Size))
	site := int(readUint32(header, 2*uint32Size))
	if magic != magicStr {
		logger().Error("string memory corruption: bad magic", "caller_site", callerSite, "magic", magic)
		return
	}
	if site < 0 || site >= DebugSlots {
		logger().Error("string memory corruption: bad site", "caller_site", callerSite, "site", site, "len", totalLen)
		return
	}
	length := totalLen - 4*uint32Size
	trailer := readUint32(payload, length)
	if trailer != magicEnd {
		logger().Error("string memory corruption: bad trailer", "caller_site", callerSite, "magic", trailer, "len", totalLen, "site", site)
		return
	}

	writeUint32(header, 0, poisoned)
	writeUint32(payload, length, poisoned)
	stringCount[site].Add(-1)
	stringFree[site].Add(1)
}
