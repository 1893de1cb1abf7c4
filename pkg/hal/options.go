package hal

import (
	"fmt"
	"net/http"
)

// Options is the configuration surface shared by the resolver, the
// accessors it attaches and the response interceptor.
type Options struct {
	// MediaType identifies hypermedia responses.
	// Default: application/hal+json
	MediaType string

	// LinksKey is the key of the links collection.
	// Default: _links
	LinksKey string

	// EmbeddedKey is the key of the embedded collection.
	// Default: _embedded
	EmbeddedKey string

	// SelfRel is never followed automatically.
	// Default: self
	SelfRel string

	// FetchAllKey is the selector value meaning "follow every relation
	// except SelfRel" when selectors come from untyped input.
	// Default: _allLinks
	FetchAllKey string

	// ResourcesAttr and EmbeddedAttr name the accessors when a Resource is
	// rendered as JSON.
	// Defaults: $resources, $embedded
	ResourcesAttr string
	EmbeddedAttr  string

	// AbsentStatuses are the fetch statuses that mean "link absent" while
	// following links. Such failures are dropped instead of failing the
	// resolution.
	// Default: [404]
	AbsentStatuses []int

	// DefaultParams are merged under call parameters by every accessor.
	DefaultParams map[string]string
}

// DefaultOptions returns the HAL conventions.
func DefaultOptions() Options {
	return Options{
		MediaType:      "application/hal+json",
		LinksKey:       "_links",
		EmbeddedKey:    "_embedded",
		SelfRel:        "self",
		FetchAllKey:    "_allLinks",
		ResourcesAttr:  "$resources",
		EmbeddedAttr:   "$embedded",
		AbsentStatuses: []int{http.StatusNotFound},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MediaType == "" {
		o.MediaType = d.MediaType
	}
	if o.LinksKey == "" {
		o.LinksKey = d.LinksKey
	}
	if o.EmbeddedKey == "" {
		o.EmbeddedKey = d.EmbeddedKey
	}
	if o.SelfRel == "" {
		o.SelfRel = d.SelfRel
	}
	if o.FetchAllKey == "" {
		o.FetchAllKey = d.FetchAllKey
	}
	if o.ResourcesAttr == "" {
		o.ResourcesAttr = d.ResourcesAttr
	}
	if o.EmbeddedAttr == "" {
		o.EmbeddedAttr = d.EmbeddedAttr
	}
	if o.AbsentStatuses == nil {
		o.AbsentStatuses = d.AbsentStatuses
	}
	return o
}

// ProcessOptions control a single Process call.
type ProcessOptions struct {
	// Follow selects the relations fetched automatically.
	Follow Follow

	// Recursive runs fetched documents through the resolver with the same
	// Follow selector, following links transitively.
	Recursive bool
}

type followMode int

const (
	followNone followMode = iota
	followOne
	followList
	followAll
)

// Follow selects which relations the resolver fetches. The zero value
// follows nothing.
type Follow struct {
	mode followMode
	rels []string
}

var (
	// FollowNone disables link following.
	FollowNone = Follow{}

	// FollowAll follows every relation except the self relation.
	FollowAll = Follow{mode: followAll}
)

// FollowRel follows the single relation name.
func FollowRel(name string) Follow {
	return Follow{mode: followOne, rels: []string{name}}
}

// FollowRels follows every relation listed in names.
func FollowRels(names ...string) Follow {
	rels := make([]string, len(names))
	copy(rels, names)
	return Follow{mode: followList, rels: rels}
}

// ParseFollow converts untyped selector input, such as decoded JSON or
// flag values. nil follows nothing; a string equal to fetchAllKey follows
// everything; any other string follows that relation; a list of strings
// follows each. Every other type is rejected with ErrInvalidFollow.
func ParseFollow(v any, fetchAllKey string) (Follow, error) {
	switch t := v.(type) {
	case nil:
		return FollowNone, nil
	case Follow:
		return t, nil
	case string:
		if t == fetchAllKey {
			return FollowAll, nil
		}
		return FollowRel(t), nil
	case []string:
		return FollowRels(t...), nil
	case []any:
		names := make([]string, 0, len(t))
		for i, item := range t {
			name, ok := item.(string)
			if !ok {
				return Follow{}, fmt.Errorf("%w: element %d is %T, not a string", ErrInvalidFollow, i, item)
			}
			names = append(names, name)
		}
		return FollowRels(names...), nil
	default:
		return Follow{}, fmt.Errorf("%w: %T is neither a string nor a list of strings", ErrInvalidFollow, v)
	}
}

// Enabled reports whether any relation may be followed.
func (f Follow) Enabled() bool {
	return f.mode != followNone
}

func (f Follow) validate() error {
	for _, rel := range f.rels {
		if rel == "" {
			return fmt.Errorf("%w: empty relation name", ErrInvalidFollow)
		}
	}
	return nil
}

// includes reports whether rel is selected. The self relation is filtered
// by the caller.
func (f Follow) includes(rel string) bool {
	switch f.mode {
	case followAll:
		return true
	case followOne, followList:
		for _, r := range f.rels {
			if r == rel {
				return true
			}
		}
	}
	return false
}

func (f Follow) String() string {
	switch f.mode {
	case followAll:
		return "all"
	case followOne, followList:
		return fmt.Sprintf("%v", f.rels)
	default:
		return "none"
	}
}
