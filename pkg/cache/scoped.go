package cache

// ScopedKeyer wraps a Keyer with a prefix so separate contexts (per-study
// workspaces, shared deployments) get isolated cache namespaces.
//
// Example usage:
//
//	// Study-specific keys
//	studyKeyer := NewScopedKeyer(NewDefaultKeyer(), "study:abc123:")
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

// DocumentKey generates a prefixed key for extracted timelines.
func (k *ScopedKeyer) DocumentKey(docHash string, opts DocumentKeyOpts) string {
	return k.prefix + k.inner.DocumentKey(docHash, opts)
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(timelinesHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(timelinesHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
