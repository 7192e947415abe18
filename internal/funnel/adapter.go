package funnel

import (
	"context"
	"encoding/json"
	"time"
)

// SourceAdapter fetches raw records from one external system. Fetch must be
// a pure read: the ledger owns the watermark, adapters never advance it.
// since is the lower bound of the fetch window.
type SourceAdapter interface {
	Fetch(ctx context.Context, config json.RawMessage, since time.Time) ([]ExternalRecord, error)
}

// AdapterFunc adapts a function to the SourceAdapter interface.
type AdapterFunc func(ctx context.Context, config json.RawMessage, since time.Time) ([]ExternalRecord, error)

func (f AdapterFunc) Fetch(ctx context.Context, config json.RawMessage, since time.Time) ([]ExternalRecord, error) {
	return f(ctx, config, since)
}

// Registry maps each source type to its adapter. Source types are a closed
// enum, so a missing entry is a wiring bug surfaced at sync time as
// ErrNoAdapter.
type Registry struct {
	adapters map[SourceType]SourceAdapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[SourceType]SourceAdapter)}
}

// Register binds an adapter to a source type, replacing any previous one.
func (r *Registry) Register(st SourceType, adapter SourceAdapter) *Registry {
	r.adapters[st] = adapter
	return r
}

// Lookup returns the adapter for a source type.
func (r *Registry) Lookup(st SourceType) (SourceAdapter, bool) {
	adapter, ok := r.adapters[st]
	return adapter, ok
}
