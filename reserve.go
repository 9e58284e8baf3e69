// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickmem

// Reservation names the number of buffers to reserve at each order,
// indexed by Order. A zero entry leaves that order's pool.max
// untouched.
type Reservation struct {
	Amount [MaxOrder + 1]int64
}

// ReserveStatus reports whether Reserve completed without hitting the
// host allocator's limits.
type ReserveStatus struct {
	// OutOfMemory is set on the first raw allocation failure
	// encountered while growing a pool; Reserve continues servicing
	// the remaining orders regardless.
	OutOfMemory bool
}

// Reserve grows or shrinks each order's freelist toward the requested
// high-water mark (spec.md C7), walking orders from MaxOrder down to 0
// so that large, fragmentation-sensitive allocations are serviced
// first.
//
// Growing an order issues raw allocations and pushes them onto the
// freelist; shrinking drains surplus buffers back to the host. A raw
// allocation failure while growing sets ReserveStatus.OutOfMemory but
// does not abort the remaining orders. With Config.MemPrealloc disabled,
// Reserve leaves every pool untouched and returns a zero status.
func Reserve(request Reservation) ReserveStatus {
	var status ReserveStatus
	if !currentConfig().MemPrealloc {
		return status
	}
	for o := MaxOrder; o >= 0; o-- {
		order := Order(o)
		p := &pools[order]

		var newMax int64
		for {
			prev := p.max.Load()
			newMax = prev + request.Amount[order]
			if p.max.CompareAndSwap(prev, newMax) {
				break
			}
		}

		delta := newMax - p.count.Load()
		if delta >= 0 {
			for i := int64(0); i < delta; i++ {
				buf, ok := rawAlloc(order)
				if !ok {
					if !status.OutOfMemory {
						status.OutOfMemory = true
					}
					continue
				}
				poolPut(order, buf)
			}
			continue
		}

		for i := int64(0); i < -delta; i++ {
			buf, err := poolGet(order)
			if err != nil {
				break
			}
			rawFree(buf, order)
		}
	}
	return status
}
