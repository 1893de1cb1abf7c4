package hal

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Link is a single entry of a links collection.
type Link struct {
	Href      string `mapstructure:"href" json:"href"`
	Templated bool   `mapstructure:"templated" json:"templated,omitempty"`
	Name      string `mapstructure:"name" json:"name,omitempty"`
	Title     string `mapstructure:"title" json:"title,omitempty"`
	Type      string `mapstructure:"type" json:"type,omitempty"`
}

// decodeLinks converts a raw links collection. A relation holding a list of
// links resolves to its first entry.
func decodeLinks(raw any) (map[string]Link, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: links collection is %T, not an object", ErrMalformed, raw)
	}

	links := make(map[string]Link, len(m))
	for rel, v := range m {
		if list, ok := v.([]any); ok {
			if len(list) == 0 {
				continue
			}
			v = list[0]
		}

		var link Link
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &link,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if _, ok := v.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: link %q is %T, not an object", ErrMalformed, rel, v)
		}
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("%w: link %q: %v", ErrMalformed, rel, err)
		}
		links[rel] = link
	}

	return links, nil
}
