package home

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/hal/pkg/halurl"
	"github.com/hashicorp-forge/hal/pkg/resource"
)

// Fetcher retrieves a remote entry-point document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*resource.Response, error)
}

// Source declares where the entry points of one API come from. Locations
// are http(s) URLs or paths to local JSON/YAML files; several locations for
// one API are merged.
type Source struct {
	API       string
	Locations []string
}

// LoadOptions configures Load.
type LoadOptions struct {
	Sources []Source

	// Fetcher retrieves remote locations.
	Fetcher Fetcher

	// Fs reads local locations. Default: the OS filesystem.
	Fs afero.Fs

	// Factory, MediaType and Logger are passed to the new Registry.
	Factory   *resource.Factory
	MediaType string
	Logger    hclog.Logger
}

// entryPoint is the json-home shaped document read at startup.
type entryPoint struct {
	Resources map[string]Descriptor `mapstructure:"resources"`
}

// loaded is one fetched and decoded entry-point document.
type loaded struct {
	api      string
	location string
	doc      entryPoint
}

// Load builds a Registry from every declared source. Documents are gathered
// in parallel; registration happens afterwards from a single goroutine in
// declaration order. Any failure is fatal and every failure is reported.
func Load(ctx context.Context, opts LoadOptions) (*Registry, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	logger := opts.Logger.Named("home")

	reg := NewRegistry(RegistryConfig{
		Factory:   opts.Factory,
		MediaType: opts.MediaType,
		Logger:    opts.Logger,
	})

	// Duplicate API names are rejected before anything is fetched.
	for _, src := range opts.Sources {
		if _, err := reg.Add(src.API); err != nil {
			return nil, err
		}
	}

	var slots [][]loaded
	for _, src := range opts.Sources {
		slots = append(slots, make([]loaded, len(src.Locations)))
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	addError := func(err error) {
		mu.Lock()
		result = multierror.Append(result, err)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, src := range opts.Sources {
		for j, location := range src.Locations {
			eg.Go(func() error {
				doc, err := readEntryPoint(egCtx, opts, location)
				if err != nil {
					addError(fmt.Errorf("api %q: %s: %w", src.API, location, err))
					return nil
				}
				slots[i][j] = loaded{api: src.API, location: location, doc: doc}
				return nil
			})
		}
	}
	_ = eg.Wait()

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, docs := range slots {
		for _, l := range docs {
			api, err := reg.API(l.api)
			if err != nil {
				return nil, err
			}
			for _, desc := range sortedDescriptors(l.doc) {
				if err := api.Register(desc); err != nil {
					result = multierror.Append(result, err)
				}
			}
			logger.Info("loaded entry point", "api", l.api, "location", l.location, "relations", len(l.doc.Resources))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return reg, nil
}

func readEntryPoint(ctx context.Context, opts LoadOptions, location string) (entryPoint, error) {
	var (
		raw  any
		host string
	)

	if halurl.IsAbsolute(location) {
		if opts.Fetcher == nil {
			return entryPoint{}, fmt.Errorf("no fetcher configured for remote entry point")
		}
		resp, err := opts.Fetcher.Fetch(ctx, location)
		if err != nil {
			return entryPoint{}, err
		}
		raw = resp.Payload()
		host, _ = halurl.GetHost(resp.Origin())
	} else {
		data, err := afero.ReadFile(opts.Fs, location)
		if err != nil {
			return entryPoint{}, err
		}
		raw, err = decodeFile(location, data)
		if err != nil {
			return entryPoint{}, err
		}
	}

	return decodeEntryPoint(raw, host)
}

func decodeFile(location string, data []byte) (any, error) {
	var raw any
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return raw, nil
}

// decodeEntryPoint decodes raw into an entryPoint, defaulting each rel to
// its key and resolving root-relative hrefs against host when host is set.
func decodeEntryPoint(raw any, host string) (entryPoint, error) {
	var ep entryPoint

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ep,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return entryPoint{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return entryPoint{}, fmt.Errorf("failed to decode entry point: %w", err)
	}

	for key, desc := range ep.Resources {
		if desc.Rel == "" {
			desc.Rel = key
		}
		if host != "" {
			desc = desc.resolveAgainst(host)
		}
		ep.Resources[key] = desc
	}

	return ep, nil
}

func sortedDescriptors(ep entryPoint) []Descriptor {
	keys := make([]string, 0, len(ep.Resources))
	for k := range ep.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Descriptor, 0, len(keys))
	for _, k := range keys {
		out = append(out, ep.Resources[k])
	}
	return out
}
