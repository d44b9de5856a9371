package slot

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlag(t *testing.T) {
	t.Run("empty flag drains false", func(t *testing.T) {
		var f Flag
		assert.False(t, f.Drain())
		assert.False(t, f.Pending())
	})

	t.Run("raise twice coalesces into one delivery", func(t *testing.T) {
		var f Flag
		f.Raise()
		f.Raise()
		assert.True(t, f.Pending())
		assert.True(t, f.Drain())
		assert.False(t, f.Drain())
	})
}

func TestSlot(t *testing.T) {
	t.Run("last write wins", func(t *testing.T) {
		var s Slot[time.Duration]
		s.Raise(time.Second)
		s.Raise(2 * time.Second)

		v, ok := s.Drain()
		require.True(t, ok)
		assert.Equal(t, 2*time.Second, v)

		v, ok = s.Drain()
		assert.False(t, ok)
		assert.Zero(t, v)
	})

	t.Run("zero payload is still delivered", func(t *testing.T) {
		var s Slot[int]
		s.Raise(0)
		assert.True(t, s.Pending())
		_, ok := s.Drain()
		assert.True(t, ok)
	})
}

func TestFlagConcurrentRaiseNeverDeliversMoreThanRaised(t *testing.T) {
	const producers = 8
	const raises = 1000

	var (
		f         Flag
		delivered atomic.Int64
		wg        sync.WaitGroup
		stop      = make(chan struct{})
		consumer  = make(chan struct{})
	)

	go func() {
		defer close(consumer)
		for {
			select {
			case <-stop:
				if f.Drain() {
					delivered.Add(1)
				}
				return
			default:
				if f.Drain() {
					delivered.Add(1)
				}
			}
		}
	}()

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raises; j++ {
				f.Raise()
			}
		}()
	}
	wg.Wait()
	close(stop)
	<-consumer

	assert.LessOrEqual(t, delivered.Load(), int64(producers*raises))
	assert.GreaterOrEqual(t, delivered.Load(), int64(1))
	assert.False(t, f.Pending())
}
