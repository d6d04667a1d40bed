package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments or
// tool versions can share one backend without reading each other's results.
//
// Example usage:
//
//	// Results produced by a different emf2svg build must not be reused
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "emf2svg-1.7:")
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

// ConversionKey generates a prefixed key for document conversions.
func (k *ScopedKeyer) ConversionKey(docHash string, opts ConversionKeyOpts) string {
	return k.prefix + k.inner.ConversionKey(docHash, opts)
}

// MetafileKey generates a prefixed key for metafile conversions.
func (k *ScopedKeyer) MetafileKey(dataHash string, opts MetafileKeyOpts) string {
	return k.prefix + k.inner.MetafileKey(dataHash, opts)
}
