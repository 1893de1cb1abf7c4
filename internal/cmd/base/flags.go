package base

import (
	"bytes"
	"flag"
	"fmt"
	"strings"
)

// FlagSet wraps flag.FlagSet with help output suitable for command Help
// text.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet creates a new FlagSet.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	return &FlagSet{FlagSet: f}
}

// Help returns the usage text of every defined flag.
func (f *FlagSet) Help() string {
	var buf bytes.Buffer
	buf.WriteString("\n\nOptions:\n\n")

	f.VisitAll(func(fl *flag.Flag) {
		name, usage := flag.UnquoteUsage(fl)
		if name != "" {
			fmt.Fprintf(&buf, "  -%s=<%s>\n", fl.Name, name)
		} else {
			fmt.Fprintf(&buf, "  -%s\n", fl.Name)
		}
		if fl.DefValue != "" && fl.DefValue != "false" {
			usage += fmt.Sprintf(" (default: %s)", fl.DefValue)
		}
		fmt.Fprintf(&buf, "    %s\n\n", usage)
	})

	return strings.TrimRight(buf.String(), "\n")
}

// StringMapValue collects repeated key=value flags.
type StringMapValue map[string]string

func (m StringMapValue) String() string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (m StringMapValue) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	m[k] = v
	return nil
}
