package pools

import "sync"

// BytePool is a size-tiered byte slice pool. The reactor draws connection
// read buffers and response serialization buffers from it instead of
// allocating per connection.
type BytePool struct {
	pools []*sync.Pool
	sizes []int
}

// Tiers sized for this workload: response scratch, connection read
// buffers, oversized bodies.
var defaultSizes = []int{
	2048,
	8192,
	32768,
}

// NewBytePool creates a byte pool with the standard size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size tiers
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of at least the requested size
func (bp *BytePool) Get(size int) []byte {
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			bufPtr := bp.pools[i].Get().(*[]byte)
			return (*bufPtr)[:size]
		}
	}

	// Larger than every tier, allocate directly
	return make([]byte, size)
}

// Put returns a byte slice to its tier. Slices whose capacity matches no
// tier (grown or foreign) are left to the GC.
func (bp *BytePool) Put(buf []byte) {
	capacity := cap(buf)

	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			return
		}
	}
}
