package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// The API server scopes keys per deployment so that several environments
// can share one Redis instance.
//
// Example usage:
//
//	stagingKeyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SliceKey generates a prefixed key for slice set caching.
func (k *ScopedKeyer) SliceKey(sourceHash string, opts SliceKeyOpts) string {
	return k.prefix + k.inner.SliceKey(sourceHash, opts)
}

// MockupKey generates a prefixed key for mockup caching.
func (k *ScopedKeyer) MockupKey(coverHash, edgeHash string, opts MockupKeyOpts) string {
	return k.prefix + k.inner.MockupKey(coverHash, edgeHash, opts)
}

// InfoKey generates a prefixed key for document inspection caching.
func (k *ScopedKeyer) InfoKey(documentHash string) string {
	return k.prefix + k.inner.InfoKey(documentHash)
}
