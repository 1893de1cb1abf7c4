package resource

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// ExpandTemplate expands an RFC 6570 URI template with params. Variables
// missing from params expand to nothing.
func ExpandTemplate(tmpl string, params map[string]string) (string, error) {
	t, err := uritemplate.New(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid url template %q: %w", tmpl, err)
	}

	values := uritemplate.Values{}
	for k, v := range params {
		values.Set(k, uritemplate.String(v))
	}

	expanded, err := t.Expand(values)
	if err != nil {
		return "", fmt.Errorf("failed to expand url template %q: %w", tmpl, err)
	}
	return expanded, nil
}

// TemplateVariables returns the variable names of an RFC 6570 template in
// order of appearance.
func TemplateVariables(tmpl string) ([]string, error) {
	t, err := uritemplate.New(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid url template %q: %w", tmpl, err)
	}
	return t.Varnames(), nil
}

// BuildURL applies params to rawURL. Template variables in rawURL consume the
// params they name; the remaining params are appended as query parameters in
// sorted key order.
func BuildURL(rawURL string, params map[string]string) (string, error) {
	remaining := make(map[string]string, len(params))
	for k, v := range params {
		remaining[k] = v
	}

	if strings.Contains(rawURL, "{") {
		t, err := uritemplate.New(rawURL)
		if err != nil {
			return "", fmt.Errorf("invalid url template %q: %w", rawURL, err)
		}

		values := uritemplate.Values{}
		for _, name := range t.Varnames() {
			if v, ok := remaining[name]; ok {
				values.Set(name, uritemplate.String(v))
				delete(remaining, name)
			}
		}

		expanded, err := t.Expand(values)
		if err != nil {
			return "", fmt.Errorf("failed to expand url template %q: %w", rawURL, err)
		}
		rawURL = expanded
	}

	if len(remaining) == 0 {
		return rawURL, nil
	}

	keys := make([]string, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rawURL)
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	for _, k := range keys {
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(remaining[k]))
		sep = "&"
	}

	return b.String(), nil
}
