package hal

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/hal/pkg/resource"
)

func newTestResolver(t *testing.T, f Fetcher, opts Options) *Resolver {
	t.Helper()
	return NewResolver(Config{
		Options: opts,
		Fetcher: f,
		Logger:  hclog.NewNullLogger(),
	})
}

func TestProcess_PlainDocument(t *testing.T) {
	doc := decode(t, `{"id": 1, "name": "widget"}`)
	r := newTestResolver(t, nil, Options{})

	res, err := r.Process(context.Background(), Data(doc), ProcessOptions{})
	require.NoError(t, err)

	assert.Equal(t, doc, res.State())
	assert.Nil(t, res.Resources())
	assert.Nil(t, res.Embedded())
	assert.Empty(t, res.FollowedRels())
}

func TestProcess_UnwrapsEnvelope(t *testing.T) {
	doc := decode(t, `{"id": 1, "_links": {"self": {"href": "/widgets/1"}}}`)
	r := newTestResolver(t, nil, Options{})

	res, err := r.Process(context.Background(), Data(&resource.Response{Data: doc}), ProcessOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": float64(1)}, res.State())
	require.NotNil(t, res.Resources())
	link, ok := res.Resources().Link("self")
	require.True(t, ok)
	assert.Equal(t, "/widgets/1", link.Href)
}

func TestProcess_RejectsNonObject(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{name: "Array", input: []any{map[string]any{"id": 1}}},
		{name: "String", input: "widget"},
		{name: "Number", input: float64(3)},
		{name: "Null", input: nil},
		{name: "EnvelopedArray", input: &resource.Response{Data: []any{}}},
		{name: "NilEnvelope", input: (*resource.Response)(nil)},
	}

	r := newTestResolver(t, nil, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Process(context.Background(), Data(tt.input), ProcessOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
			assert.Nil(t, res)
		})
	}
}

func TestProcess_InvalidFollow(t *testing.T) {
	doc := decode(t, `{"id": 1}`)
	r := newTestResolver(t, nil, Options{})

	_, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowRels("orders", "")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFollow)
}

func TestProcess_DoesNotMutateInput(t *testing.T) {
	const raw = `{
	  "id": 1,
	  "_links": {"self": {"href": "/orders/1"}, "items": {"href": "/orders/1/items"}},
	  "_embedded": {"items": [{"sku": "a", "_links": {"self": {"href": "/items/a"}}}]}
	}`
	doc := decode(t, raw)
	want := decode(t, raw)

	r := newTestResolver(t, nil, Options{})
	res, err := r.Process(context.Background(), Data(doc), ProcessOptions{})
	require.NoError(t, err)

	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("input document modified (-want +got):\n%s", diff)
	}

	assert.Equal(t, map[string]any{"id": float64(1)}, res.State())
	assert.Contains(t, doc, "_links")
	assert.Contains(t, doc, "_embedded")
}

func TestProcess_Embedded(t *testing.T) {
	doc := decode(t, `{
	  "total": 2,
	  "_embedded": {
	    "items": [
	      {"id": 1, "_links": {"self": {"href": "/items/1"}}},
	      {"id": 2}
	    ],
	    "owner": {"name": "ann", "_embedded": {"address": {"city": "Oslo"}}}
	  }
	}`)
	r := newTestResolver(t, nil, Options{})

	res, err := r.Process(context.Background(), Data(doc), ProcessOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"total": float64(2)}, res.State())
	assert.Nil(t, res.Resources())

	emb := res.Embedded()
	require.NotNil(t, emb)
	assert.Equal(t, []string{"items", "owner"}, emb.Rels())

	items, ok := emb.Get("items")
	require.True(t, ok)
	assert.True(t, items.IsList())
	require.Len(t, items.All(), 2)
	assert.Equal(t, float64(1), items.All()[0].State()["id"])
	assert.Equal(t, float64(2), items.All()[1].State()["id"])

	self, ok := items.All()[0].Resources().Link("self")
	require.True(t, ok)
	assert.Equal(t, "/items/1", self.Href)

	owner, ok := emb.Get("owner")
	require.True(t, ok)
	assert.False(t, owner.IsList())
	assert.Equal(t, "ann", owner.One().State()["name"])

	address, ok := owner.One().Embedded().Get("address")
	require.True(t, ok)
	assert.Equal(t, "Oslo", address.One().State()["city"])

	_, ok = emb.Get("missing")
	assert.False(t, ok)
	assert.Len(t, emb.All(), 2)
}

func TestProcess_AllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "ArrayElementIsArray",
			doc:  `{"_embedded": {"good": {"id": 1}, "bad": [{"id": 2}, [1, 2]]}}`,
		},
		{
			name: "EmbeddedValueIsString",
			doc:  `{"_embedded": {"good": [{"id": 1}], "bad": "nope"}}`,
		},
		{
			name: "EmptyEmbeddedList",
			doc:  `{"_embedded": {"items": []}}`,
		},
		{
			name: "EmbeddedCollectionIsList",
			doc:  `{"_embedded": [{"id": 1}]}`,
		},
		{
			name: "LinksCollectionIsString",
			doc:  `{"_links": "nope"}`,
		},
		{
			name: "LinkIsNumber",
			doc:  `{"_links": {"self": 1}}`,
		},
		{
			name: "NestedMalformed",
			doc:  `{"_embedded": {"a": {"_embedded": {"b": [{"id": 1}, 2]}}}}`,
		},
	}

	r := newTestResolver(t, nil, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Process(context.Background(), Data(decode(t, tt.doc)), ProcessOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Nil(t, res)
		})
	}
}

func TestProcess_FollowLinks(t *testing.T) {
	const order = `{
	  "id": 1,
	  "_links": {
	    "self": {"href": "https://api.example.com/orders/1"},
	    "customer": {"href": "https://api.example.com/customers/7"},
	    "invoice": {"href": "https://api.example.com/invoices/3"}
	  }
	}`
	routes := map[string]fakeRoute{
		"https://api.example.com/orders/1":    {body: order},
		"https://api.example.com/customers/7": {body: `{"name": "ann"}`},
	}

	tests := []struct {
		name         string
		follow       Follow
		wantFetched  []string
		wantFollowed []string
	}{
		{
			name:   "All",
			follow: FollowAll,
			wantFetched: []string{
				"https://api.example.com/customers/7",
				"https://api.example.com/invoices/3",
			},
			wantFollowed: []string{"customer"},
		},
		{
			name:         "Single",
			follow:       FollowRel("customer"),
			wantFetched:  []string{"https://api.example.com/customers/7"},
			wantFollowed: []string{"customer"},
		},
		{
			name:         "List",
			follow:       FollowRels("invoice", "unknown"),
			wantFetched:  []string{"https://api.example.com/invoices/3"},
			wantFollowed: []string{},
		},
		{
			name:         "SelfIsNeverFollowed",
			follow:       FollowRel("self"),
			wantFetched:  []string{},
			wantFollowed: []string{},
		},
		{
			name:         "None",
			follow:       FollowNone,
			wantFetched:  []string{},
			wantFollowed: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher(t, routes)
			r := newTestResolver(t, f, Options{})

			res, err := r.Process(context.Background(), Data(decode(t, order)), ProcessOptions{Follow: tt.follow})
			require.NoError(t, err)

			assert.ElementsMatch(t, tt.wantFetched, f.calls())
			assert.ElementsMatch(t, tt.wantFollowed, res.FollowedRels())
		})
	}

	t.Run("FollowedResourceIsStoredUnderRel", func(t *testing.T) {
		f := newFakeFetcher(t, routes)
		r := newTestResolver(t, f, Options{})

		res, err := r.Process(context.Background(), Data(decode(t, order)), ProcessOptions{Follow: FollowAll})
		require.NoError(t, err)

		customer, ok := res.Followed("customer")
		require.True(t, ok)
		assert.Equal(t, "ann", customer.State()["name"])

		v, ok := res.Get("customer")
		require.True(t, ok)
		assert.Same(t, customer, v)

		_, ok = res.Followed("invoice")
		assert.False(t, ok, "absent link must be dropped")

		id, ok := res.Get("id")
		require.True(t, ok)
		assert.Equal(t, float64(1), id)
	})
}

func TestProcess_FollowFailure(t *testing.T) {
	doc := decode(t, `{"_links": {"customer": {"href": "https://api.example.com/customers/7"}}}`)

	tests := []struct {
		name       string
		status     int
		opts       Options
		wantErr    bool
		wantStatus int
	}{
		{name: "ServerError", status: http.StatusInternalServerError, wantErr: true, wantStatus: 500},
		{name: "Forbidden", status: http.StatusForbidden, wantErr: true, wantStatus: 403},
		{name: "GoneByDefault", status: http.StatusGone, wantErr: true, wantStatus: 410},
		{
			name:   "GoneConfiguredAbsent",
			status: http.StatusGone,
			opts:   Options{AbsentStatuses: []int{http.StatusNotFound, http.StatusGone}},
		},
		{name: "NotFound", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher(t, map[string]fakeRoute{
				"https://api.example.com/customers/7": {status: tt.status},
			})
			r := newTestResolver(t, f, tt.opts)

			res, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowAll})
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, res)
				status, ok := resource.StatusCode(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantStatus, status)
				return
			}

			require.NoError(t, err)
			_, ok := res.Followed("customer")
			assert.False(t, ok)
		})
	}
}

func TestProcess_FollowMissingHref(t *testing.T) {
	doc := decode(t, `{"_links": {"broken": {"templated": true}}}`)
	r := newTestResolver(t, newFakeFetcher(t, nil), Options{})

	_, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowRel("broken")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingLink)
}

func TestProcess_FollowWithoutFetcher(t *testing.T) {
	doc := decode(t, `{"_links": {"customer": {"href": "/customers/7"}}}`)
	r := newTestResolver(t, nil, Options{})

	_, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowAll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fetcher configured")
}

func TestProcess_FollowTemplatedLink(t *testing.T) {
	doc := decode(t, `{"_links": {"search": {"href": "https://api.example.com/search{?q,page}", "templated": true}}}`)
	f := newFakeFetcher(t, map[string]fakeRoute{
		"https://api.example.com/search": {body: `{"hits": 0}`},
	})
	r := newTestResolver(t, f, Options{})

	res, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowRel("search")})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://api.example.com/search"}, f.calls())
	search, ok := res.Followed("search")
	require.True(t, ok)
	assert.Equal(t, float64(0), search.State()["hits"])
}

func TestProcess_Recursive(t *testing.T) {
	routes := map[string]fakeRoute{
		"https://api.example.com/a": {body: `{"id": "a", "_links": {"self": {"href": "/a"}, "next": {"href": "/b"}}}`},
		"https://api.example.com/b": {body: `{"id": "b", "_links": {"next": {"href": "https://api.example.com/c"}}}`},
		"https://api.example.com/c": {body: `{"id": "c"}`},
	}
	const root = `{"_links": {"next": {"href": "https://api.example.com/a"}}}`

	t.Run("Recursive", func(t *testing.T) {
		f := newFakeFetcher(t, routes)
		r := newTestResolver(t, f, Options{})

		res, err := r.Process(context.Background(), Data(decode(t, root)), ProcessOptions{
			Follow:    FollowRel("next"),
			Recursive: true,
		})
		require.NoError(t, err)

		var ids []string
		cur := res
		for {
			next, ok := cur.Followed("next")
			if !ok {
				break
			}
			ids = append(ids, next.State()["id"].(string))
			cur = next
		}
		assert.Equal(t, []string{"a", "b", "c"}, ids)

		a, _ := res.Followed("next")
		self, ok := a.Resources().Link("self")
		require.True(t, ok)
		assert.Equal(t, "https://api.example.com/a", self.Href, "root-relative links are made absolute")
	})

	t.Run("SinglePass", func(t *testing.T) {
		f := newFakeFetcher(t, routes)
		r := newTestResolver(t, f, Options{})

		res, err := r.Process(context.Background(), Data(decode(t, root)), ProcessOptions{Follow: FollowRel("next")})
		require.NoError(t, err)

		a, ok := res.Followed("next")
		require.True(t, ok)
		assert.Equal(t, "a", a.State()["id"])
		assert.Empty(t, a.FollowedRels())
		assert.NotNil(t, a.Resources())
		assert.Equal(t, []string{"https://api.example.com/a"}, f.calls())
	})
}

func TestProcess_EmbeddedOrderPreserved(t *testing.T) {
	f := newFakeFetcher(t, map[string]fakeRoute{
		"https://api.example.com/details/1": {body: `{"detail": 1}`, delay: 10 * time.Millisecond},
		"https://api.example.com/details/2": {body: `{"detail": 2}`, delay: 80 * time.Millisecond},
		"https://api.example.com/details/3": {body: `{"detail": 3}`},
	})
	doc := decode(t, `{"_embedded": {"items": [
	  {"id": 1, "_links": {"detail": {"href": "https://api.example.com/details/1"}}},
	  {"id": 2, "_links": {"detail": {"href": "https://api.example.com/details/2"}}},
	  {"id": 3, "_links": {"detail": {"href": "https://api.example.com/details/3"}}}
	]}}`)
	r := newTestResolver(t, f, Options{})

	res, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowRel("detail")})
	require.NoError(t, err)

	items, ok := res.Embedded().Get("items")
	require.True(t, ok)
	require.Len(t, items.All(), 3)
	for i, item := range items.All() {
		want := float64(i + 1)
		assert.Equal(t, want, item.State()["id"])

		detail, ok := item.Followed("detail")
		require.True(t, ok)
		assert.Equal(t, want, detail.State()["detail"])
	}
}

func TestProcess_FailureCancelsSiblings(t *testing.T) {
	f := newFakeFetcher(t, map[string]fakeRoute{
		"https://api.example.com/slow":   {body: `{}`, delay: 5 * time.Second},
		"https://api.example.com/broken": {status: http.StatusBadGateway},
	})
	doc := decode(t, `{"_links": {
	  "slow": {"href": "https://api.example.com/slow"},
	  "broken": {"href": "https://api.example.com/broken"}
	}}`)
	r := newTestResolver(t, f, Options{})

	start := time.Now()
	_, err := r.Process(context.Background(), Data(doc), ProcessOptions{Follow: FollowAll})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestProcess_Sources(t *testing.T) {
	const url = "https://api.example.com/orders/1"
	f := newFakeFetcher(t, map[string]fakeRoute{
		url: {body: `{"id": 1, "_links": {"self": {"href": "/orders/1"}}}`},
	})
	r := newTestResolver(t, f, Options{})
	ctx := context.Background()

	t.Run("Fetch", func(t *testing.T) {
		res, err := r.Process(ctx, Fetch(f, url), ProcessOptions{})
		require.NoError(t, err)
		assert.Equal(t, float64(1), res.State()["id"])
	})

	t.Run("FetchError", func(t *testing.T) {
		_, err := r.Process(ctx, Fetch(f, "https://api.example.com/nope"), ProcessOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, resource.ErrNotFound)
	})

	t.Run("Async", func(t *testing.T) {
		src := Async(ctx, func(ctx context.Context) (any, error) {
			return f.Fetch(ctx, url)
		})
		res, err := r.Process(ctx, src, ProcessOptions{})
		require.NoError(t, err)
		assert.Equal(t, float64(1), res.State()["id"])
	})

	t.Run("AsyncError", func(t *testing.T) {
		boom := errors.New("boom")
		src := Async(ctx, func(context.Context) (any, error) {
			return nil, boom
		})
		_, err := r.Process(ctx, src, ProcessOptions{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestParseFollow(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    Follow
		wantErr bool
	}{
		{name: "Nil", input: nil, want: FollowNone},
		{name: "FetchAllKey", input: "_allLinks", want: FollowAll},
		{name: "Name", input: "orders", want: FollowRel("orders")},
		{name: "Strings", input: []string{"a", "b"}, want: FollowRels("a", "b")},
		{name: "DecodedList", input: []any{"a", "b"}, want: FollowRels("a", "b")},
		{name: "Typed", input: FollowAll, want: FollowAll},
		{name: "Number", input: 3, wantErr: true},
		{name: "Object", input: map[string]any{"name": "a"}, wantErr: true},
		{name: "MixedList", input: []any{"a", 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFollow(tt.input, "_allLinks")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFollow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFollow_Includes(t *testing.T) {
	assert.False(t, FollowNone.Enabled())
	assert.True(t, FollowAll.includes("anything"))
	assert.True(t, FollowRel("a").includes("a"))
	assert.False(t, FollowRel("a").includes("ab"))
	assert.True(t, FollowRels("a", "b").includes("b"))
	assert.False(t, FollowRels("a", "b").includes("c"))
	assert.Equal(t, "none", FollowNone.String())
	assert.Equal(t, "all", FollowAll.String())
}
