// Package cachekey builds deterministic cache keys from a namespace and a set
// of request parameters.
package cachekey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

const (
	// NamespaceSep separates the namespace from the parameter list.
	NamespaceSep = "::"
	// PairSep separates rendered key:value pairs.
	PairSep = "|"
)

// Build returns namespace alone when params is empty, otherwise
// namespace::k1:v1|k2:v2 with keys in lexicographic order.
func Build(namespace string, params map[string]any) string {
	if len(params) == 0 {
		return namespace
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(namespace)
	b.WriteString(NamespaceSep)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(PairSep)
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(render(params[k]))
	}
	return b.String()
}

func render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case fmt.Stringer:
		return t.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
