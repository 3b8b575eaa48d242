package devq

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDGenerator_Unique(t *testing.T) {
	assert := assert.New(t)

	gen := newIDGenerator()

	const goroutines = 8
	const perGoroutine = 1000

	var mu sync.Mutex
	seen := make(map[uint32]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]uint32, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				ids = append(ids, gen.next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(seen[id], "duplicate id %d", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(seen, goroutines*perGoroutine)
}

func TestIDGenerator_SkipsZero(t *testing.T) {
	assert := assert.New(t)

	gen := &idGenerator{}
	gen.id.Store(math.MaxUint32)

	// wrapping past MaxUint32 must not yield the reserved zero id
	assert.NotZero(gen.next())
	assert.NotZero(gen.next())
}

func TestIDGenerator_GlobalScope(t *testing.T) {
	assert := assert.New(t)

	// ids are unique across managers, not per manager
	a := nextCommandID()
	b := nextCommandID()
	assert.NotEqual(a, b)

	ta := nextTransactionID()
	tb := nextTransactionID()
	assert.NotEqual(ta, tb)
}
