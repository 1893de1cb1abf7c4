package home

import (
	"net/http"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp-forge/hal/pkg/resource"
)

// Registry maps API names to their endpoint tables. It is built once during
// startup and passed to every consumer; after startup it is only read.
type Registry struct {
	mu        sync.RWMutex
	apis      map[string]*API
	factory   *resource.Factory
	mediaType string
	logger    hclog.Logger
}

// RegistryConfig holds the collaborators a Registry hands to the APIs it
// creates.
type RegistryConfig struct {
	// Factory builds the handles returned by API.Enter.
	Factory *resource.Factory

	// MediaType is requested by the "get" action of entered handles.
	// Default: application/hal+json
	MediaType string

	Logger hclog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.MediaType == "" {
		cfg.MediaType = resource.DefaultMediaType
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Registry{
		apis:      make(map[string]*API),
		factory:   cfg.Factory,
		mediaType: cfg.MediaType,
		logger:    cfg.Logger.Named("home"),
	}
}

// Add creates the endpoint table for a new API. Adding a name twice is an
// error.
func (r *Registry) Add(name string) (*API, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apis[name]; exists {
		return nil, &RegistrationError{API: name, Kind: ErrDuplicateAPI}
	}

	api := &API{
		name:     name,
		registry: r,
		defs:     make(map[string]Descriptor),
	}
	r.apis[name] = api
	return api, nil
}

// API returns the endpoint table for name.
func (r *Registry) API(name string) (*API, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	api, ok := r.apis[name]
	if !ok {
		return nil, &RegistrationError{API: name, Kind: ErrUnknownAPI}
	}
	return api, nil
}

// APIs returns the registered API names in sorted order.
func (r *Registry) APIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.apis))
	for name := range r.apis {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// API is the endpoint table of a single API.
type API struct {
	name     string
	registry *Registry

	mu   sync.RWMutex
	defs map[string]Descriptor
}

// Name returns the API name.
func (a *API) Name() string {
	return a.name
}

// Register validates desc and adds it under desc.Rel.
func (a *API) Register(desc Descriptor) error {
	if err := desc.Validate(); err != nil {
		return &RegistrationError{API: a.name, Rel: desc.Rel, Kind: ErrInvalidDescriptor, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.defs[desc.Rel]; exists {
		return &RegistrationError{API: a.name, Rel: desc.Rel, Kind: ErrDuplicateRel}
	}

	a.defs[desc.Rel] = copyDescriptor(desc)
	a.registry.logger.Debug("registered relation", "api", a.name, "rel", desc.Rel)
	return nil
}

// Definition returns the descriptor registered for rel.
func (a *API) Definition(rel string) (Descriptor, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	desc, ok := a.defs[rel]
	if !ok {
		return Descriptor{}, &RegistrationError{API: a.name, Rel: rel, Kind: ErrNotFound}
	}
	return copyDescriptor(desc), nil
}

// Relations returns the registered relation names in sorted order.
func (a *API) Relations() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rels := make([]string, 0, len(a.defs))
	for rel := range a.defs {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return rels
}

// Enter builds a handle for rel. An href descriptor gets params bound to the
// handle; an href-template descriptor is expanded with params first and the
// handle gets no further params, so they are not applied twice. The "get"
// action always asks for the hypermedia media type.
func (a *API) Enter(rel string, params map[string]string, actions resource.Actions, opts resource.HandleOptions) (*resource.Handle, error) {
	desc, err := a.Definition(rel)
	if err != nil {
		return nil, err
	}

	actions = a.withHypermediaGet(actions)

	if !desc.Templated() {
		return a.registry.factory.NewHandle(desc.Href, params, actions, opts), nil
	}

	u, err := resource.ExpandTemplate(desc.HrefTemplate, params)
	if err != nil {
		return nil, &RegistrationError{API: a.name, Rel: rel, Kind: ErrInvalidDescriptor, Err: err}
	}
	return a.registry.factory.NewHandle(u, nil, actions, opts), nil
}

func (a *API) withHypermediaGet(actions resource.Actions) resource.Actions {
	get, ok := actions["get"]
	if !ok {
		get = resource.Action{Method: http.MethodGet}
	}

	headers := make(map[string]string, len(get.Headers)+1)
	for k, v := range get.Headers {
		headers[k] = v
	}
	headers["Accept"] = a.registry.mediaType
	get.Headers = headers

	return actions.Merge(resource.Actions{"get": get})
}

func copyDescriptor(d Descriptor) Descriptor {
	if d.HrefVars != nil {
		vars := make(map[string]string, len(d.HrefVars))
		for k, v := range d.HrefVars {
			vars[k] = v
		}
		d.HrefVars = vars
	}
	return d
}
