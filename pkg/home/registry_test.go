package home

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/hal/pkg/resource"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	reg := NewRegistry(RegistryConfig{Factory: resource.NewFactory(nil)})
	api, err := reg.Add("shop")
	require.NoError(t, err)
	return api
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name     string
		desc     Descriptor
		errorMsg string
	}{
		{
			name: "href",
			desc: Descriptor{Rel: "widgets", Href: "/widgets"},
		},
		{
			name: "href-template with vars",
			desc: Descriptor{
				Rel:          "widget",
				HrefTemplate: "/widgets/{id}",
				HrefVars:     map[string]string{"id": "https://example.com/param/widget-id"},
			},
		},
		{
			name:     "missing rel",
			desc:     Descriptor{Href: "/widgets"},
			errorMsg: "rel: cannot be blank",
		},
		{
			name:     "neither href nor template",
			desc:     Descriptor{Rel: "widgets"},
			errorMsg: "href: one of href or href-template is required",
		},
		{
			name: "both href and template",
			desc: Descriptor{
				Rel:          "widgets",
				Href:         "/widgets",
				HrefTemplate: "/widgets{?q}",
				HrefVars:     map[string]string{"q": "q"},
			},
			errorMsg: "href: must not be set together with href-template",
		},
		{
			name:     "template without vars",
			desc:     Descriptor{Rel: "widgets", HrefTemplate: "/widgets{?q}"},
			errorMsg: "href-vars: is required with href-template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestAPI_Register(t *testing.T) {
	api := newTestAPI(t)

	first := Descriptor{Rel: "widgets", Href: "https://api.example.com/widgets"}
	require.NoError(t, api.Register(first))

	err := api.Register(Descriptor{Rel: "widgets", Href: "https://api.example.com/other"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRel))

	var regErr *RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "shop", regErr.API)
	assert.Equal(t, "widgets", regErr.Rel)

	got, err := api.Definition("widgets")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestAPI_RegisterInvalid(t *testing.T) {
	api := newTestAPI(t)

	err := api.Register(Descriptor{Rel: "widgets", HrefTemplate: "/widgets{?q}"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDescriptor))
	assert.Contains(t, err.Error(), "href-vars")

	_, err = api.Definition("widgets")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAPI_DefinitionIsCopied(t *testing.T) {
	api := newTestAPI(t)

	vars := map[string]string{"id": "widget-id"}
	require.NoError(t, api.Register(Descriptor{Rel: "widget", HrefTemplate: "/widgets/{id}", HrefVars: vars}))
	vars["id"] = "changed"

	got, err := api.Definition("widget")
	require.NoError(t, err)
	assert.Equal(t, "widget-id", got.HrefVars["id"])
}

func TestAPI_Enter(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.Register(Descriptor{Rel: "widgets", Href: "https://api.example.com/widgets"}))
	require.NoError(t, api.Register(Descriptor{
		Rel:          "widget",
		HrefTemplate: "https://api.example.com/widgets/{id}{?expand}",
		HrefVars:     map[string]string{"id": "widget-id", "expand": "expand"},
	}))

	t.Run("href binds params", func(t *testing.T) {
		h, err := api.Enter("widgets", map[string]string{"page": "2"}, nil, resource.HandleOptions{})
		require.NoError(t, err)

		assert.Equal(t, "https://api.example.com/widgets", h.RawURL())
		assert.Equal(t, map[string]string{"page": "2"}, h.Params())

		u, err := h.URL(nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/widgets?page=2", u)
	})

	t.Run("template expanded once", func(t *testing.T) {
		h, err := api.Enter("widget", map[string]string{"id": "42", "expand": "parts"}, nil, resource.HandleOptions{})
		require.NoError(t, err)

		assert.Equal(t, "https://api.example.com/widgets/42?expand=parts", h.RawURL())
		assert.Empty(t, h.Params())

		u, err := h.URL(nil)
		require.NoError(t, err)
		assert.Equal(t, "https://api.example.com/widgets/42?expand=parts", u)
	})

	t.Run("get asks for hypermedia", func(t *testing.T) {
		h, err := api.Enter("widgets", nil, resource.Actions{
			"get":   {Method: http.MethodGet, Headers: map[string]string{"X-Trace": "1"}},
			"touch": {Method: http.MethodPatch},
		}, resource.HandleOptions{})
		require.NoError(t, err)

		get, ok := h.Action("get")
		require.True(t, ok)
		assert.Equal(t, resource.DefaultMediaType, get.Headers["Accept"])
		assert.Equal(t, "1", get.Headers["X-Trace"])

		touch, ok := h.Action("touch")
		require.True(t, ok)
		assert.Equal(t, http.MethodPatch, touch.Method)
		assert.Empty(t, touch.Headers)
	})

	t.Run("unknown rel", func(t *testing.T) {
		_, err := api.Enter("gadgets", nil, nil, resource.HandleOptions{})
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestRegistry_Add(t *testing.T) {
	reg := NewRegistry(RegistryConfig{})

	_, err := reg.Add("shop")
	require.NoError(t, err)

	_, err = reg.Add("shop")
	assert.True(t, errors.Is(err, ErrDuplicateAPI))

	_, err = reg.Add("billing")
	require.NoError(t, err)

	assert.Equal(t, []string{"billing", "shop"}, reg.APIs())

	_, err = reg.API("inventory")
	assert.True(t, errors.Is(err, ErrUnknownAPI))
}
