package facet

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"duck-grid/internal/engine"
)

// Registry owns the live sidecars for one grid. Exactly one sidecar exists
// per (columnID, kind) key; registering the same key twice returns the
// existing client unchanged.
type Registry struct {
	// Debounce is applied to sidecars registered without their own
	// interval; zero keeps search fetches synchronous.
	Debounce time.Duration
	// Guard, when set, is held around debounced fetches so they stay
	// serialized with whatever owns the cascade source.
	Guard sync.Locker

	source   CascadeSource
	eng      engine.Engine
	logger   *slog.Logger
	flight   singleflight.Group
	sidecars map[string]*Sidecar
}

// NewRegistry creates an empty registry bound to a cascade source and engine.
func NewRegistry(source CascadeSource, eng engine.Engine, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source:   source,
		eng:      eng,
		logger:   logger.With("component", "facet"),
		sidecars: make(map[string]*Sidecar),
	}
}

// Register creates the sidecar for opts, or returns the existing one when the
// key is already live (idempotent registration).
func (r *Registry) Register(opts Options) *Sidecar {
	if sc, ok := r.sidecars[opts.Key()]; ok {
		return sc
	}
	if opts.Debounce == 0 {
		opts.Debounce = r.Debounce
	}
	sc := &Sidecar{
		opts:      opts,
		source:    r.source,
		eng:       r.eng,
		logger:    r.logger.With("facet", opts.Key()),
		flight:    &r.flight,
		guard:     r.Guard,
		connected: true,
		limit:     opts.Limit,
	}
	if sc.limit <= 0 {
		sc.limit = DefaultLimit
	}
	r.sidecars[opts.Key()] = sc
	return sc
}

// Get returns the live sidecar for key, if any.
func (r *Registry) Get(key string) (*Sidecar, bool) {
	sc, ok := r.sidecars[key]
	return sc, ok
}

// Len returns the number of live sidecars.
func (r *Registry) Len() int { return len(r.sidecars) }

// Disconnect tears down every sidecar and empties the registry.
func (r *Registry) Disconnect() {
	for _, sc := range r.sidecars {
		sc.Disconnect()
	}
	r.sidecars = make(map[string]*Sidecar)
}
