package datasource

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/matsen/bibnet/internal/config"
)

// Options are passed to every opener.
type Options struct {
	Logger  *slog.Logger
	Metrics *Metrics
}

// Log returns the configured logger or the default one.
func (o Options) Log() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Opener builds a source from its configuration tree. It should validate
// cfg against its own schema before touching any backend.
type Opener func(name string, cfg config.Tree, opts Options) (Source, error)

// BaseSchema is the part of a source configuration every backend shares.
var BaseSchema = config.Schema{
	"_pre_init": config.Subtree(config.Schema{
		"type": config.Required(config.IsType(config.KindString)),
	}),
	"init": config.OptionalSubtree(nil),
}

// Factory maps configuration type names to openers. There is no package
// level registry; build one with NewFactory and register what you need.
type Factory struct {
	mu      sync.RWMutex
	openers map[string]Opener
	opts    Options
}

// NewFactory returns an empty factory whose sources share opts.
func NewFactory(opts Options) *Factory {
	return &Factory{openers: map[string]Opener{}, opts: opts}
}

// Registration is the handle returned by Register.
type Registration struct {
	f   *Factory
	typ string
}

// Unregister removes the opener. Calling it twice is harmless.
func (r *Registration) Unregister() {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.openers, r.typ)
}

// Register adds an opener for typ. Registering a type twice is an error.
func (f *Factory) Register(typ string, open Opener) (*Registration, error) {
	if typ == "" || open == nil {
		return nil, fmt.Errorf("registering data source type %q: empty type or nil opener", typ)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.openers[typ]; dup {
		return nil, fmt.Errorf("data source type %q already registered", typ)
	}
	f.openers[typ] = open
	return &Registration{f: f, typ: typ}, nil
}

// Types returns the registered type names in sorted order.
func (f *Factory) Types() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.openers))
	for typ := range f.openers {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Open validates the shared part of cfg and hands it to the opener named by
// _pre_init.type.
func (f *Factory) Open(name string, cfg config.Tree) (Source, error) {
	if cfg == nil {
		cfg = config.Tree{}
	}
	if _, err := cfg.Validate(BaseSchema, true); err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	typ := cfg.String("", "_pre_init", "type")

	f.mu.RLock()
	open, ok := f.openers[typ]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("source %q: %w: %q (known: %v)", name, ErrUnknownSourceType, typ, f.Types())
	}

	src, err := open(name, cfg, f.opts)
	if err != nil {
		return nil, fmt.Errorf("opening source %q: %w", name, err)
	}
	f.opts.Log().Debug("opened data source", "source", name, "type", typ)
	return src, nil
}

// OpenAll opens every source in sources. On failure the sources opened so
// far are closed.
func (f *Factory) OpenAll(sources config.Sources) (map[string]Source, error) {
	out := make(map[string]Source, len(sources))
	for _, name := range sources.Names() {
		src, err := f.Open(name, sources[name])
		if err != nil {
			for _, s := range out {
				s.Close()
			}
			return nil, err
		}
		out[name] = src
	}
	return out, nil
}
