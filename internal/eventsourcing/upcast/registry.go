// Package upcast holds per-type, per-version payload transforms that bring
// old-shaped payloads up to the shape current code expects.
//
// Exactly one transform is applied per Upcast call: a transform registered for
// version v must itself produce the current shape, or the registrant must
// compose the hops with Chain. The registry never chains on its own.
package upcast

import "sync"

// Payload is the plain-data shape being upgraded.
type Payload = map[string]any

// Func upgrades a payload from the version it was registered for.
type Func func(Payload) Payload

type key struct {
	eventType   string
	fromVersion int
}

// Registry maps (eventType, fromVersion) to a transform.
type Registry struct {
	mu    sync.RWMutex
	funcs map[key]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[key]Func)}
}

// Register stores fn for (eventType, fromVersion). Re-registering the same key
// overwrites the previous transform.
func (r *Registry) Register(eventType string, fromVersion int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = make(map[key]Func)
	}
	r.funcs[key{eventType: eventType, fromVersion: fromVersion}] = fn
}

// Upcast applies the transform registered for exactly (eventType, version), or
// returns payload unchanged when there is none.
func (r *Registry) Upcast(eventType string, payload Payload, version int) Payload {
	fn, ok := r.lookup(eventType, version)
	if !ok {
		return payload
	}
	return fn(payload)
}

// Has reports whether a transform exists for (eventType, version).
func (r *Registry) Has(eventType string, version int) bool {
	_, ok := r.lookup(eventType, version)
	return ok
}

func (r *Registry) lookup(eventType string, version int) (Func, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[key{eventType: eventType, fromVersion: version}]
	if !ok || fn == nil {
		return nil, false
	}
	return fn, true
}

// Chain composes hops left to right into a single transform.
func Chain(fns ...Func) Func {
	return func(p Payload) Payload {
		for _, fn := range fns {
			if fn != nil {
				p = fn(p)
			}
		}
		return p
	}
}

// RenameField returns a transform that moves a key to a new name.
func RenameField(from, to string) Func {
	return func(p Payload) Payload {
		out := clone(p)
		if v, ok := out[from]; ok {
			out[to] = v
			delete(out, from)
		}
		return out
	}
}

// AddField returns a transform that sets a default when the key is absent.
func AddField(name string, value any) Func {
	return func(p Payload) Payload {
		out := clone(p)
		if _, ok := out[name]; !ok {
			out[name] = value
		}
		return out
	}
}

func clone(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
