package sitedata

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes the same key", func(t *testing.T) {
		k := newKeyedMutex()
		counter := 0
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Lock("products/p1")
				defer unlock()
				v := counter
				counter = v + 1
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, counter)
	})

	t.Run("releases entries when idle", func(t *testing.T) {
		k := newKeyedMutex()
		unlockA := k.Lock("a")
		unlockB := k.Lock("b")
		assert.Equal(t, 2, k.size())
		unlockA()
		unlockB()
		assert.Equal(t, 0, k.size())
	})
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"settings", "products/index", "products/p-1_x"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", "/a", "a/", "a//b", "../a", "a/./b", "a b"} {
		assert.Error(t, ValidateKey(key), key)
	}
}
