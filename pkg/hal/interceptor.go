package hal

import (
	"context"
	"strings"

	"github.com/hashicorp-forge/hal/pkg/halurl"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

// Interceptor post-processes transport responses: hypermedia responses are
// resolved, everything else passes through untouched.
type Interceptor struct {
	resolver *Resolver
	opts     ProcessOptions
}

// NewInterceptor creates an interceptor that resolves matching responses
// with opts.
func NewInterceptor(resolver *Resolver, opts ProcessOptions) *Interceptor {
	return &Interceptor{
		resolver: resolver,
		opts:     opts,
	}
}

// Matches reports whether resp carries the hypermedia media type.
func (i *Interceptor) Matches(resp *resource.Response) bool {
	if resp == nil {
		return false
	}
	return strings.EqualFold(resp.MediaType(), i.resolver.opts.MediaType)
}

// Intercept resolves resp when it matches the hypermedia media type. The
// boolean result is false when resp was left alone. Root-relative links are
// rewritten against the response origin before processing.
func (i *Interceptor) Intercept(ctx context.Context, resp *resource.Response) (*Resource, bool, error) {
	if !i.Matches(resp) {
		return nil, false, nil
	}

	var data any = resp
	if doc, ok := resp.Payload().(map[string]any); ok {
		if host, ok := halurl.GetHost(resp.Origin()); ok && host != "" {
			data = RewriteLinks(doc, host, i.resolver.opts)
		}
	}

	res, err := i.resolver.Process(ctx, Data(data), i.opts)
	if err != nil {
		return nil, true, err
	}
	return res, true, nil
}

// RewriteLinks returns a copy of doc with every root-relative href ("/x")
// made absolute against host, including the links of embedded documents.
// Protocol-relative and absolute hrefs are left alone. doc is not modified.
func RewriteLinks(doc map[string]any, host string, opts Options) map[string]any {
	opts = opts.withDefaults()
	return rewriteDoc(doc, host, opts)
}

func rewriteDoc(doc map[string]any, host string, opts Options) map[string]any {
	rawLinks, hasLinks := doc[opts.LinksKey]
	rawEmbedded, hasEmbedded := doc[opts.EmbeddedKey]
	if !hasLinks && !hasEmbedded {
		return doc
	}

	out := cloneWithout(doc)

	if links, ok := rawLinks.(map[string]any); ok {
		rewritten := make(map[string]any, len(links))
		for rel, v := range links {
			switch l := v.(type) {
			case map[string]any:
				rewritten[rel] = rewriteLink(l, host)
			case []any:
				list := make([]any, len(l))
				for i, item := range l {
					if m, ok := item.(map[string]any); ok {
						list[i] = rewriteLink(m, host)
					} else {
						list[i] = item
					}
				}
				rewritten[rel] = list
			default:
				rewritten[rel] = v
			}
		}
		out[opts.LinksKey] = rewritten
	}

	if embedded, ok := rawEmbedded.(map[string]any); ok {
		rewritten := make(map[string]any, len(embedded))
		for rel, v := range embedded {
			switch e := v.(type) {
			case map[string]any:
				rewritten[rel] = rewriteDoc(e, host, opts)
			case []any:
				list := make([]any, len(e))
				for i, item := range e {
					if m, ok := item.(map[string]any); ok {
						list[i] = rewriteDoc(m, host, opts)
					} else {
						list[i] = item
					}
				}
				rewritten[rel] = list
			default:
				rewritten[rel] = v
			}
		}
		out[opts.EmbeddedKey] = rewritten
	}

	return out
}

func rewriteLink(link map[string]any, host string) map[string]any {
	href, ok := link["href"].(string)
	if !ok || !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
		return link
	}
	out := cloneWithout(link)
	out["href"] = halurl.ToAbsoluteURL(href, host)
	return out
}
