package store

import (
	"regexp"
	"strconv"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validIdent(s string) bool {
	return identRe.MatchString(s)
}

// quoteIdent quotes a validated identifier, part by part for schema.table.
func quoteIdent(ident string) string {
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}

// builder collects bind arguments and renders their placeholders.
type builder struct {
	style PlaceholderStyle
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	if b.style == PlaceholderDollar {
		return "$" + strconv.Itoa(len(b.args))
	}
	return "?"
}
