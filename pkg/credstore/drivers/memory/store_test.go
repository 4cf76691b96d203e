package memory_test

import (
	"sync"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/credstore"
	"github.com/aussiebroadwan/storefront/pkg/credstore/drivers/memory"
	"github.com/aussiebroadwan/storefront/pkg/credstore/storetest"
)

func TestStore(t *testing.T) {
	t.Parallel()

	// memory stores are per instance, so keep one per scope to model reopening
	var mu sync.Mutex
	stores := map[string]*memory.Store{}

	storetest.Run(t, func(t *testing.T, scope string) credstore.Store {
		mu.Lock()
		defer mu.Unlock()
		if s, ok := stores[scope]; ok {
			return s
		}
		s := memory.NewStore()
		stores[scope] = s
		return s
	})
}
