package spanz

import (
	"sync"
)

// idPool maintains pre-generated span IDs to amortize crypto/rand
// overhead on the span creation path.
type idPool struct {
	factory   func() string
	ids       chan string
	stopCh    chan struct{}
	closeOnce sync.Once
}

// newIDPool creates a pool with the specified capacity and starts its
// background refill goroutine.
func newIDPool(capacity int, factory func() string) *idPool {
	pool := &idPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	go pool.refill()
	return pool
}

// Get retrieves an ID from the pool or generates one if the pool is empty.
func (p *idPool) Get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		// Pool empty, generate directly (fallback for burst load).
		return p.factory()
	}
}

// refill maintains the pool by generating IDs in background.
func (p *idPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			// Only generate if pool has capacity.
			select {
			case p.ids <- p.factory():
				// Successfully added ID to pool.
			case <-p.stopCh:
				return
			}
		}
	}
}

// Close shuts down the ID pool gracefully. Safe to call multiple times.
func (p *idPool) Close() {
	p.closeOnce.Do(func() {
		close(p.stopCh)
	})
}
