package hal

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/hashicorp-forge/hal/pkg/halurl"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

// Fetcher retrieves the document behind a followed link. Failures must wrap
// a *resource.StatusError so absent links can be told apart.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*resource.Response, error)
}

// Envelope is a transport wrapper around a decoded document. Process
// unwraps envelopes before validating the document.
type Envelope interface {
	Payload() any
}

// Source produces the value to process: an in-memory document, an envelope
// or the result of a fetch.
type Source interface {
	Load(ctx context.Context) (any, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (any, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (any, error) {
	return f(ctx)
}

// Data returns a Source for a value that is already available.
func Data(v any) Source {
	return SourceFunc(func(context.Context) (any, error) {
		return v, nil
	})
}

// Fetch returns a Source that fetches url when loaded.
func Fetch(f Fetcher, url string) Source {
	return SourceFunc(func(ctx context.Context) (any, error) {
		resp, err := f.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}

// Async starts fn immediately and returns a Source that waits for it. It is
// the equivalent of handing the resolver a request that is already in
// flight.
func Async(ctx context.Context, fn func(ctx context.Context) (any, error)) Source {
	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	return SourceFunc(func(loadCtx context.Context) (any, error) {
		select {
		case r := <-ch:
			return r.v, r.err
		case <-loadCtx.Done():
			return nil, loadCtx.Err()
		}
	})
}

// Config configures a Resolver.
type Config struct {
	Options Options

	// Fetcher retrieves followed links. Required only when links are
	// followed.
	Fetcher Fetcher

	// Factory builds the handles returned by accessors. When nil and
	// Fetcher is a resource.Doer, a factory over Fetcher is used.
	Factory *resource.Factory

	Logger hclog.Logger
}

// Resolver walks hypermedia documents, attaching accessors, following
// selected links and resolving embedded resources recursively.
type Resolver struct {
	opts    Options
	fetcher Fetcher
	factory *resource.Factory
	logger  hclog.Logger
}

// NewResolver creates a new resolver.
func NewResolver(cfg Config) *Resolver {
	factory := cfg.Factory
	if factory == nil {
		doer, _ := cfg.Fetcher.(resource.Doer)
		factory = resource.NewFactory(doer)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Resolver{
		opts:    cfg.Options.withDefaults(),
		fetcher: cfg.Fetcher,
		factory: factory,
		logger:  logger.Named("resolver"),
	}
}

// Options returns the effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

// Process loads src and resolves it into a Resource. It blocks until every
// link fetch and every embedded resolution spawned at any depth has
// finished. Either the whole tree resolves or an error is returned; a
// partially resolved tree is never returned. The input document is never
// modified.
func (r *Resolver) Process(ctx context.Context, src Source, opts ProcessOptions) (*Resource, error) {
	v, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return r.process(ctx, v, opts)
}

func (r *Resolver) process(ctx context.Context, v any, opts ProcessOptions) (*Resource, error) {
	if env, ok := v.(Envelope); ok {
		v = env.Payload()
	}

	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object, got %s", ErrMalformed, describe(v))
	}

	if err := opts.Follow.validate(); err != nil {
		return nil, err
	}

	res := &Resource{
		state: doc,
		opts:  &r.opts,
	}

	rawLinks, hasLinks := doc[r.opts.LinksKey]
	rawEmbedded, hasEmbedded := doc[r.opts.EmbeddedKey]
	if !hasLinks && !hasEmbedded {
		return res, nil
	}
	res.state = cloneWithout(doc, r.opts.LinksKey, r.opts.EmbeddedKey)

	var links map[string]Link
	if hasLinks {
		var err error
		links, err = decodeLinks(rawLinks)
		if err != nil {
			return nil, err
		}
		res.resources = newAccessor(links, r.factory, r.opts.DefaultParams)
	}

	var embeddedDocs map[string]any
	if hasEmbedded {
		embeddedDocs, ok = rawEmbedded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: embedded collection is %s, not an object", ErrMalformed, describe(rawEmbedded))
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)

	type followSlot struct {
		rel string
		res *Resource
	}
	var follows []*followSlot
	if opts.Follow.Enabled() {
		for _, rel := range sortedKeys(links) {
			if rel == r.opts.SelfRel || !opts.Follow.includes(rel) {
				continue
			}
			slot := &followSlot{rel: rel}
			follows = append(follows, slot)
			link := links[rel]
			eg.Go(func() error {
				sub, err := r.follow(egCtx, slot.rel, link, opts)
				if err != nil {
					return err
				}
				slot.res = sub
				return nil
			})
		}
	}

	type embeddedSlot struct {
		one  *Resource
		many []*Resource
		list bool
	}
	embedded := make(map[string]*embeddedSlot, len(embeddedDocs))
	for rel, val := range embeddedDocs {
		slot := &embeddedSlot{}
		embedded[rel] = slot

		if items, ok := val.([]any); ok && len(items) > 0 {
			slot.list = true
			slot.many = make([]*Resource, len(items))
			for i, item := range items {
				eg.Go(func() error {
					sub, err := r.process(egCtx, item, opts)
					if err != nil {
						return fmt.Errorf("embedded %q[%d]: %w", rel, i, err)
					}
					slot.many[i] = sub
					return nil
				})
			}
			continue
		}

		eg.Go(func() error {
			sub, err := r.process(egCtx, val, opts)
			if err != nil {
				return fmt.Errorf("embedded %q: %w", rel, err)
			}
			slot.one = sub
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, slot := range follows {
		if slot.res == nil {
			continue
		}
		if res.followed == nil {
			res.followed = make(map[string]*Resource, len(follows))
		}
		res.followed[slot.rel] = slot.res
	}

	if hasEmbedded {
		entries := make(map[string]Embedded, len(embedded))
		for rel, slot := range embedded {
			entries[rel] = Embedded{one: slot.one, many: slot.many, list: slot.list}
		}
		res.embedded = &EmbeddedAccessor{entries: entries}
	}

	return res, nil
}

// follow fetches one selected relation. An absent target yields a nil
// Resource and no error.
func (r *Resolver) follow(ctx context.Context, rel string, link Link, opts ProcessOptions) (*Resource, error) {
	if link.Href == "" {
		return nil, fmt.Errorf("%w: relation %q", ErrMissingLink, rel)
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("cannot follow relation %q: no fetcher configured", rel)
	}

	u := halurl.ExtractURL(link.Href, link.Templated)
	resp, err := r.fetcher.Fetch(ctx, u)
	if err != nil {
		if r.isAbsent(err) {
			r.logger.Debug("linked resource absent, skipping", "rel", rel, "url", u, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to follow relation %q: %w", rel, err)
	}

	var data any = resp
	if doc, ok := resp.Payload().(map[string]any); ok {
		if host, ok := halurl.GetHost(resp.Origin()); ok && host != "" {
			data = RewriteLinks(doc, host, r.opts)
		}
	}

	next := opts
	if !opts.Recursive {
		next = ProcessOptions{}
	}

	sub, err := r.process(ctx, data, next)
	if err != nil {
		return nil, fmt.Errorf("relation %q: %w", rel, err)
	}
	return sub, nil
}

func (r *Resolver) isAbsent(err error) bool {
	var se *resource.StatusError
	if !errors.As(err, &se) {
		return false
	}
	for _, status := range r.opts.AbsentStatuses {
		if se.StatusCode == status {
			return true
		}
	}
	return false
}

// cloneWithout returns a shallow copy of doc without the given keys.
func cloneWithout(doc map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case float64, int, int64:
		return "a number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
