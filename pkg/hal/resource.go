package hal

import (
	"encoding/json"
	"sort"
)

// Resource is a processed hypermedia document: the original state fields,
// an accessor for its links, the resolved embedded resources and every
// relation that was followed automatically.
//
// A Resource is built once by the resolver and not modified afterwards, so
// it is safe to read from multiple goroutines.
type Resource struct {
	state     map[string]any
	resources *Accessor
	embedded  *EmbeddedAccessor
	followed  map[string]*Resource
	opts      *Options
}

// State returns the state fields with the links and embedded collections
// removed. When the document had neither, this is the original map. Callers
// must not modify it.
func (r *Resource) State() map[string]any {
	return r.state
}

// Get returns the value stored under key: a followed relation if one was
// fetched under that name, otherwise the state field.
func (r *Resource) Get(key string) (any, bool) {
	if sub, ok := r.followed[key]; ok {
		return sub, true
	}
	v, ok := r.state[key]
	return v, ok
}

// Resources returns the links accessor, nil when the document had no links
// collection.
func (r *Resource) Resources() *Accessor {
	return r.resources
}

// Embedded returns the embedded accessor, nil when the document had no
// embedded collection.
func (r *Resource) Embedded() *EmbeddedAccessor {
	return r.embedded
}

// Followed returns the fetched and processed resource for rel.
func (r *Resource) Followed(rel string) (*Resource, bool) {
	sub, ok := r.followed[rel]
	return sub, ok
}

// FollowedRels returns the names of the followed relations in sorted order.
func (r *Resource) FollowedRels() []string {
	return sortedKeys(r.followed)
}

// MarshalJSON renders the state fields, each followed relation under its
// name, the relation listing under the resources attribute and the resolved
// embedded collection under the embedded attribute.
func (r *Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.state)+len(r.followed)+2)
	for k, v := range r.state {
		out[k] = v
	}
	for rel, sub := range r.followed {
		out[rel] = sub
	}

	opts := r.opts
	if opts == nil {
		d := DefaultOptions()
		opts = &d
	}
	if r.resources != nil {
		out[opts.ResourcesAttr] = r.resources.List()
	}
	if r.embedded != nil {
		out[opts.EmbeddedAttr] = r.embedded
	}

	return json.Marshal(out)
}

// Embedded is one entry of a resolved embedded collection: a single
// resource or an ordered list of them.
type Embedded struct {
	one  *Resource
	many []*Resource
	list bool
}

// IsList reports whether the entry was a list in the original document.
func (e Embedded) IsList() bool {
	return e.list
}

// One returns the single resource, nil for list entries.
func (e Embedded) One() *Resource {
	return e.one
}

// All returns the list entries in document order. A single entry is
// returned as a one-element slice.
func (e Embedded) All() []*Resource {
	if e.list {
		return e.many
	}
	return []*Resource{e.one}
}

func (e Embedded) MarshalJSON() ([]byte, error) {
	if e.list {
		return json.Marshal(e.many)
	}
	return json.Marshal(e.one)
}

// EmbeddedAccessor replaces the embedded collection of a processed
// document.
type EmbeddedAccessor struct {
	entries map[string]Embedded
}

// All returns the whole resolved collection. The map is a copy.
func (a *EmbeddedAccessor) All() map[string]Embedded {
	out := make(map[string]Embedded, len(a.entries))
	for rel, e := range a.entries {
		out[rel] = e
	}
	return out
}

// Get returns the resolved entry for rel.
func (a *EmbeddedAccessor) Get(rel string) (Embedded, bool) {
	e, ok := a.entries[rel]
	return e, ok
}

// Rels returns the embedded relation names in sorted order.
func (a *EmbeddedAccessor) Rels() []string {
	return sortedKeys(a.entries)
}

func (a *EmbeddedAccessor) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.entries)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
