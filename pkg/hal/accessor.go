package hal

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp-forge/hal/pkg/halurl"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

// Relation describes one entry of a links collection. Parameters is set
// only for templated links and maps each template variable to "".
type Relation struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Query is the argument of Accessor.Call. It is one of ListAll, ByName or
// ByDescriptor.
type Query interface {
	isQuery()
}

// ListAll lists every relation, self included.
type ListAll struct{}

// ByName addresses a relation by name.
type ByName string

// ByDescriptor addresses a relation by Name and carries call parameters.
type ByDescriptor struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

func (ListAll) isQuery()      {}
func (ByName) isQuery()       {}
func (ByDescriptor) isQuery() {}

// Result is the outcome of Accessor.Call. ListAll fills Relations; the
// other queries fill Handle, which stays nil for unknown relations.
type Result struct {
	Relations []Relation
	Handle    *resource.Handle
}

// Accessor turns the links collection of a processed document into remote
// resource handles.
type Accessor struct {
	links    map[string]Link
	factory  *resource.Factory
	defaults map[string]string
}

func newAccessor(links map[string]Link, factory *resource.Factory, defaults map[string]string) *Accessor {
	return &Accessor{
		links:    links,
		factory:  factory,
		defaults: defaults,
	}
}

// Call dispatches q. params are the call-specific parameters for ByName;
// for ByDescriptor they are merged under the descriptor's own Parameters.
func (a *Accessor) Call(q Query, params map[string]string) (Result, error) {
	switch q := q.(type) {
	case ListAll:
		return Result{Relations: a.List()}, nil
	case ByName:
		h, _ := a.Get(string(q), params)
		return Result{Handle: h}, nil
	case ByDescriptor:
		if q.Name == "" {
			return Result{}, errors.New("relation descriptor has no name")
		}
		h, _ := a.Get(q.Name, mergeParams(params, q.Parameters))
		return Result{Handle: h}, nil
	default:
		return Result{}, fmt.Errorf("unsupported accessor query %T", q)
	}
}

// List returns every relation sorted by name. Repeated calls return equal
// slices.
func (a *Accessor) List() []Relation {
	names := make([]string, 0, len(a.links))
	for name := range a.links {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Relation, 0, len(names))
	for _, name := range names {
		rel := Relation{Name: name}
		if link := a.links[name]; link.Templated {
			rel.Parameters = templateParameters(link.Href)
		}
		out = append(out, rel)
	}
	return out
}

// Link returns the raw link registered for name.
func (a *Accessor) Link(name string) (Link, bool) {
	link, ok := a.links[name]
	return link, ok
}

// Get returns a handle for the relation name with the accessor defaults
// merged under params. Parameters with an empty value are treated as unset
// and dropped. Unknown relations return ok == false.
func (a *Accessor) Get(name string, params map[string]string) (h *resource.Handle, ok bool) {
	link, ok := a.links[name]
	if !ok {
		return nil, false
	}

	merged := mergeParams(a.defaults, params)
	for k, v := range merged {
		if v == "" {
			delete(merged, k)
		}
	}

	return a.factory.NewHandle(link.Href, merged, nil, resource.HandleOptions{}), true
}

// templateParameters prefers the query expression ("{?a,b}") and falls back
// to every variable of the template.
func templateParameters(href string) map[string]string {
	if params, err := halurl.ExtractTemplateParameters(href); err == nil {
		return params
	}

	params := make(map[string]string)
	names, err := resource.TemplateVariables(href)
	if err != nil {
		return params
	}
	for _, name := range names {
		params[name] = ""
	}
	return params
}

// mergeParams returns a new map with over applied on top of base.
func mergeParams(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
