package odm

import (
	"reflect"
	"sync"

	"github.com/isometry/ldapodm/internal/ldap"
)

// cachedType pairs a descriptor with its precomputed object-class filter.
type cachedType struct {
	descriptor *TypeDescriptor
	filter     ldap.Filter
}

// descriptorCache holds one descriptor per mapped type for the lifetime of the
// mapper. Concurrent first lookups of a type may each run extraction; the first
// stored result wins and every caller observes it. Failed extractions are not cached.
type descriptorCache struct {
	entries sync.Map // map[reflect.Type]*cachedType
	build   func(reflect.Type) (*cachedType, error)
}

func newDescriptorCache(build func(reflect.Type) (*cachedType, error)) *descriptorCache {
	return &descriptorCache{build: build}
}

// lookupResult reports how getOrCreate obtained its entry.
type lookupResult int

const (
	// cacheHit means the entry was already cached.
	cacheHit lookupResult = iota
	// cacheStored means this call built and published the entry.
	cacheStored
	// cacheRaced means this call built an entry but another caller published first.
	cacheRaced
)

// getOrCreate returns the cached entry for t, building it on first use.
func (c *descriptorCache) getOrCreate(t reflect.Type) (*cachedType, lookupResult, error) {
	if cached, ok := c.entries.Load(t); ok {
		return cached.(*cachedType), cacheHit, nil
	}

	built, err := c.build(t)
	if err != nil {
		return nil, cacheHit, err
	}

	actual, loaded := c.entries.LoadOrStore(t, built)
	if loaded {
		return actual.(*cachedType), cacheRaced, nil
	}
	return built, cacheStored, nil
}

// size returns the number of cached types.
func (c *descriptorCache) size() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
