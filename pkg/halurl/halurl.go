// Package halurl contains the pure URL helpers used when processing
// hypermedia documents: template stripping, template parameter extraction,
// host detection and relative-to-absolute conversion.
//
// None of the functions here perform I/O.
package halurl

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoTemplate is returned by ExtractTemplateParameters when the URL does
// not contain a query-style template expression such as "{?a,b}".
var ErrNoTemplate = errors.New("url does not contain a query template expression")

var (
	// templateExpr matches everything from the first "{" to the last "}".
	templateExpr = regexp.MustCompile(`\{.*\}`)

	// queryTemplateExpr matches "{?a,b,c}" and captures the variable list.
	queryTemplateExpr = regexp.MustCompile(`\{\?([^}]*)\}`)

	// hostExpr captures "scheme://host[:port]" from an absolute URL.
	hostExpr = regexp.MustCompile(`(?i)^(https?://[^/?#]+)`)
)

// IsAbsolute reports whether url starts with an http or https scheme.
func IsAbsolute(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http:") || strings.HasPrefix(lower, "https:")
}

// ExtractURL returns the fetchable form of a link href. For templated links
// the template is treated as one expression: everything from the first "{"
// to the last "}" is removed. Other URLs pass through.
func ExtractURL(url string, templated bool) string {
	if !templated {
		return url
	}

	loc := templateExpr.FindStringIndex(url)
	if loc == nil {
		return url
	}
	return url[:loc[0]] + url[loc[1]:]
}

// ExtractTemplateParameters parses a "{?a,b,c}" expression and returns each
// variable name mapped to an empty placeholder value.
func ExtractTemplateParameters(url string) (map[string]string, error) {
	m := queryTemplateExpr.FindStringSubmatch(url)
	if m == nil {
		return nil, ErrNoTemplate
	}

	params := make(map[string]string)
	for _, name := range strings.Split(m[1], ",") {
		name = strings.TrimSpace(name)
		// Drop explode and prefix modifiers ("a*", "b:3").
		name = strings.TrimSuffix(name, "*")
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		if name == "" {
			continue
		}
		params[name] = ""
	}

	return params, nil
}

// StripTrailingSlash removes exactly one trailing slash, if present.
func StripTrailingSlash(url string) string {
	return strings.TrimSuffix(url, "/")
}

// GetHost returns "scheme://host" for an absolute URL. A URL rooted at "/"
// resolves against the current origin, so its host is the empty string and
// ok is true. Relative URLs have no resolvable host.
func GetHost(url string) (host string, ok bool) {
	if IsAbsolute(url) {
		m := hostExpr.FindStringSubmatch(url)
		if m == nil {
			return "", false
		}
		return m[1], true
	}

	if strings.HasPrefix(url, "/") {
		return "", true
	}

	return "", false
}

// ToAbsoluteURL resolves url against host. Absolute URLs are returned
// unchanged.
func ToAbsoluteURL(url, host string) string {
	if IsAbsolute(url) {
		return url
	}

	if strings.HasPrefix(url, "/") {
		return StripTrailingSlash(host) + url
	}

	return host + "/" + url
}
