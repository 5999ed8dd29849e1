package pools

import (
	"sync"
	"sync/atomic"
)

// Poolable is implemented by objects that can be recycled through a pool
type Poolable interface {
	Reset()
}

// ConnPool recycles reactor connection objects across accepts so a busy
// listener does not allocate one struct per connection.
type ConnPool struct {
	pool sync.Pool
	gets atomic.Uint64
	puts atomic.Uint64
}

// NewConnPool creates a pool producing fresh objects with newFunc
func NewConnPool(newFunc func() any) *ConnPool {
	cp := &ConnPool{}
	cp.pool.New = newFunc
	return cp
}

// Get retrieves an object from the pool
func (cp *ConnPool) Get() any {
	cp.gets.Add(1)
	return cp.pool.Get()
}

// Put resets the object and returns it to the pool
func (cp *ConnPool) Put(obj any) {
	if p, ok := obj.(Poolable); ok {
		p.Reset()
	}
	cp.puts.Add(1)
	cp.pool.Put(obj)
}

// Stats returns lifetime get/put counts
func (cp *ConnPool) Stats() (gets, puts uint64) {
	return cp.gets.Load(), cp.puts.Load()
}
