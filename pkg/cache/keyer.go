package cache

// Keyer generates cache keys for the two cacheable build stages,
// topology and artifacts. Centralizing key construction keeps the CLI
// and the HTTP service hitting the same entries for the same inputs.
// Placement has no key: it is recomputed on every build.
type Keyer interface {
	// TopologyKey identifies a built mesh by its shape descriptor.
	TopologyKey(shape string, radius float64, subdivisions int) string

	// ArtifactKey identifies a rendered artifact by the scene it was
	// generated from and the output options.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the inputs that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string
	Width  int
	Height int
}

// DefaultKeyer hashes inputs into versioned, prefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// Key prefixes carry a version so incompatible format changes invalidate
// old entries instead of decoding them badly.
const (
	topologyKeyPrefix = "topo:v1"
	artifactKeyPrefix = "artifact:v1"
)

func (k *DefaultKeyer) TopologyKey(shape string, radius float64, subdivisions int) string {
	return hashKey(topologyKeyPrefix, shape, radius, subdivisions)
}

func (k *DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey(artifactKeyPrefix, sceneHash, opts.Format, opts.Width, opts.Height)
}

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation,
// e.g. per-user namespaces in a shared Redis.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) TopologyKey(shape string, radius float64, subdivisions int) string {
	return k.prefix + k.inner.TopologyKey(shape, radius, subdivisions)
}

func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}
