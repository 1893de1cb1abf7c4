package resource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp-forge/hal/pkg/halurl"
)

// Action describes one operation a Handle can perform.
type Action struct {
	// Method is the HTTP method, GET when empty.
	Method string

	// Headers are sent with every invocation of the action.
	Headers map[string]string

	// HasBody marks actions that send the caller's payload.
	HasBody bool
}

// Actions maps action names to their definitions.
type Actions map[string]Action

// DefaultActions returns the actions every handle supports unless the caller
// overrides them.
func DefaultActions() Actions {
	return Actions{
		"get":    {Method: http.MethodGet},
		"query":  {Method: http.MethodGet},
		"save":   {Method: http.MethodPost, HasBody: true},
		"update": {Method: http.MethodPut, HasBody: true},
		"remove": {Method: http.MethodDelete},
		"delete": {Method: http.MethodDelete},
	}
}

// Merge returns a copy of a with every action in other replacing the action
// of the same name.
func (a Actions) Merge(other Actions) Actions {
	out := make(Actions, len(a)+len(other))
	for name, action := range a {
		out[name] = action
	}
	for name, action := range other {
		out[name] = action
	}
	return out
}

// HandleOptions tune how a handle builds its request URL.
type HandleOptions struct {
	// StripTrailingSlashes removes one trailing slash from the final URL
	// path before the query string is applied.
	StripTrailingSlashes bool
}

// Factory builds resource handles bound to one Doer.
type Factory struct {
	doer Doer
}

// NewFactory creates a new handle factory.
func NewFactory(doer Doer) *Factory {
	return &Factory{doer: doer}
}

// NewHandle wraps url as a remote resource. params are applied to every
// action; actions are merged over DefaultActions.
func (f *Factory) NewHandle(url string, params map[string]string, actions Actions, opts HandleOptions) *Handle {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}

	return &Handle{
		doer:    f.doer,
		url:     url,
		params:  p,
		actions: DefaultActions().Merge(actions),
		opts:    opts,
	}
}

// Handle is a remote resource: a URL, its bound parameters and the actions
// that may be invoked against it.
type Handle struct {
	doer    Doer
	url     string
	params  map[string]string
	actions Actions
	opts    HandleOptions
}

// RawURL returns the URL (possibly a template) the handle was built with.
func (h *Handle) RawURL() string {
	return h.url
}

// Params returns a copy of the parameters bound to the handle.
func (h *Handle) Params() map[string]string {
	out := make(map[string]string, len(h.params))
	for k, v := range h.params {
		out[k] = v
	}
	return out
}

// Action returns the named action.
func (h *Handle) Action(name string) (Action, bool) {
	a, ok := h.actions[name]
	return a, ok
}

// URL returns the request URL for the bound params merged with extra.
// Values in extra win.
func (h *Handle) URL(extra map[string]string) (string, error) {
	params := h.Params()
	for k, v := range extra {
		params[k] = v
	}

	u := h.url
	if h.opts.StripTrailingSlashes {
		u = halurl.StripTrailingSlash(u)
	}
	return BuildURL(u, params)
}

// Invoke runs the named action. body is sent only for actions with HasBody.
func (h *Handle) Invoke(ctx context.Context, name string, params map[string]string, body any) (*Response, error) {
	action, ok := h.actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	if h.doer == nil {
		return nil, fmt.Errorf("handle for %s has no transport", h.url)
	}

	u, err := h.URL(params)
	if err != nil {
		return nil, err
	}

	method := action.Method
	if method == "" {
		method = http.MethodGet
	}

	header := http.Header{}
	for k, v := range action.Headers {
		header.Set(k, v)
	}

	if !action.HasBody {
		body = nil
	}

	return h.doer.Do(ctx, method, u, header, body)
}

// Get invokes the "get" action.
func (h *Handle) Get(ctx context.Context, params map[string]string) (*Response, error) {
	return h.Invoke(ctx, "get", params, nil)
}

// Query invokes the "query" action.
func (h *Handle) Query(ctx context.Context, params map[string]string) (*Response, error) {
	return h.Invoke(ctx, "query", params, nil)
}

// Save invokes the "save" action with body.
func (h *Handle) Save(ctx context.Context, body any) (*Response, error) {
	return h.Invoke(ctx, "save", nil, body)
}

// Update invokes the "update" action with body.
func (h *Handle) Update(ctx context.Context, body any) (*Response, error) {
	return h.Invoke(ctx, "update", nil, body)
}

// Delete invokes the "delete" action.
func (h *Handle) Delete(ctx context.Context) (*Response, error) {
	return h.Invoke(ctx, "delete", nil, nil)
}
