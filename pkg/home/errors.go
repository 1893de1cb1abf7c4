package home

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds carried by RegistrationError. Match them with errors.Is.
var (
	ErrInvalidDescriptor = errors.New("invalid endpoint descriptor")
	ErrDuplicateRel      = errors.New("relation already registered")
	ErrDuplicateAPI      = errors.New("duplicate API name")
	ErrNotFound          = errors.New("relation not registered")
	ErrUnknownAPI        = errors.New("unknown API")
)

// RegistrationError is the fail-fast error returned by registry setup and
// lookups. It is never produced by document resolution.
type RegistrationError struct {
	API  string
	Rel  string
	Kind error
	Err  error
}

func (e *RegistrationError) Error() string {
	var b strings.Builder
	b.WriteString("home")
	if e.API != "" {
		fmt.Fprintf(&b, ": api %q", e.API)
	}
	if e.Rel != "" {
		fmt.Fprintf(&b, ": rel %q", e.Rel)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

func (e *RegistrationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
