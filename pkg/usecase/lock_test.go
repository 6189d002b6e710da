package usecase

import (
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestRepoLocks(t *testing.T) {
	locks := newRepoLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		maxSeen int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("acme/widgets")
			defer unlock()

			mu.Lock()
			running++
			maxSeen = max(maxSeen, running)
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	gt.Value(t, maxSeen).Equal(1)
	gt.Value(t, len(locks.locks)).Equal(0)
}

func TestRepoLocks_IndependentKeys(t *testing.T) {
	locks := newRepoLocks()

	unlockA := locks.Lock("acme/widgets")
	// a different repository must not block
	unlockB := locks.Lock("acme/gadgets")
	gt.Value(t, len(locks.locks)).Equal(2)

	unlockB()
	unlockA()
	gt.Value(t, len(locks.locks)).Equal(0)
}
