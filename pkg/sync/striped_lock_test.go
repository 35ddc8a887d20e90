package sync

import (
	"fmt"
	"sync"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_HappyPath(t *testing.T) {
	workerCount := 256
	operationCount := 100000

	l := NewStripedLock(4)

	var workerWg base.WaitGroup
	startChan := make(chan struct{}, 0)
	data := make([]int, workerCount)

	for i := 0; i < workerCount; i++ {
		workerWg.Add(1)

		go func(workerID int) {
			defer workerWg.Done()

			var opWg sync.WaitGroup
			key := []byte(fmt.Sprintf("worker%d", workerID))
			for j := 0; j < operationCount; j++ {
				opWg.Add(1)

				go func() {
					defer opWg.Done()

					select {
					case <-startChan:
					}

					mu := l.Get([]byte(key))
					mu.Lock()
					data[workerID]++
					mu.Unlock()
				}()
			}
			opWg.Wait()
		}(i)
	}

	close(startChan)
	workerWg.Wait()

	for _, val := range data {
		assert.EqualValues(t, operationCount, val)
	}
}

func TestStripedLock_LockAll(t *testing.T) {
	workerCount := 64
	operationCount := 1000

	l := NewStripedLock(8)

	keys := make([][]byte, 16)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("account%d", i))
	}

	// Every worker increments a shared counter per key while holding write
	// locks over an overlapping window of keys, and read locks over the rest.
	counters := make([]int, len(keys))

	var wg base.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)

		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationCount; j++ {
				start := (workerID + j) % (len(keys) - 2)
				write := keys[start : start+3]
				read := [][]byte{keys[len(keys)-1], keys[start]}

				unlock := l.LockAll(write, read)
				for k := start; k < start+3; k++ {
					counters[k]++
				}
				unlock()
			}
		}(i)
	}
	wg.Wait()

	var total int
	for _, count := range counters {
		total += count
	}
	assert.Equal(t, workerCount*operationCount*3, total)
}

func TestStripedLock_Stripe(t *testing.T) {
	l := NewStripedLock(4)

	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("key%d", i))
		stripe := l.Stripe(key)
		assert.True(t, stripe >= 0 && stripe < 4)
		assert.Equal(t, &l.locks[stripe], l.Get(key))
	}
}
