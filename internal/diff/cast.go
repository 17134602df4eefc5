package diff

import (
	"strconv"
	"strings"
)

// parsedType is a native column type split into base name and up to two
// numeric modifiers, e.g. varchar(30) or numeric(10,2).
type parsedType struct {
	base string
	n    int // first modifier, 0 when absent
	m    int // second modifier, 0 when absent
}

func parseType(s string) parsedType {
	s = strings.ToLower(strings.TrimSpace(s))
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return parsedType{base: s}
	}
	p := parsedType{base: s[:open]}
	mods := strings.Split(s[open+1:len(s)-1], ",")
	if len(mods) > 0 {
		p.n, _ = strconv.Atoi(strings.TrimSpace(mods[0]))
	}
	if len(mods) > 1 {
		p.m, _ = strconv.Atoi(strings.TrimSpace(mods[1]))
	}
	return p
}

// castable reports whether a column can change from one native type to
// another without risking data loss. The database could cast more with a
// USING expression, but a lossy cast silently destroys data, so anything
// outside this set fails dry validation instead.
func castable(from, to string) bool {
	f, t := parseType(from), parseType(to)
	if f == t {
		return true
	}
	switch f.base {
	case "smallint":
		return t.base == "integer" || t.base == "bigint" || t.base == "numeric"
	case "integer":
		return t.base == "bigint" || t.base == "numeric"
	case "bigint":
		return t.base == "numeric"
	case "numeric":
		// Widening only: dropping modifiers or growing both. A constrained
		// target can truncate values from an unconstrained source.
		if t.base != "numeric" {
			return false
		}
		if t.n == 0 {
			return true
		}
		return f.n != 0 && t.n >= f.n && t.m >= f.m
	case "varchar":
		switch t.base {
		case "text":
			return true
		case "varchar":
			return t.n == 0 || t.n >= f.n
		}
		return false
	case "char":
		switch t.base {
		case "text":
			return true
		case "varchar":
			return t.n == 0 || t.n >= f.n
		}
		return false
	}
	return false
}

// normalizeExpr reduces a SQL expression to a form stable across the
// database's own normalization: lowercased, with whitespace, parentheses,
// identifier quotes, and ::type casts removed. Postgres rewrites
// `"rating" >= 1 AND "rating" <= 5` into
// `((rating >= 1) AND (rating <= 5))`; both normalize identically.
func normalizeExpr(expr string) string {
	var b strings.Builder
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '(' || c == ')' || c == '"':
			i++
		case c == ':' && i+1 < len(expr) && expr[i+1] == ':':
			// Skip the cast target. Multi-word type names (character
			// varying, double precision) are consumed as a unit.
			i += 2
			for i < len(expr) {
				d := expr[i]
				if d == '_' ||
					(d >= 'a' && d <= 'z') || (d >= 'A' && d <= 'Z') || (d >= '0' && d <= '9') {
					i++
					continue
				}
				break
			}
			for _, tail := range []string{" varying", " precision"} {
				if strings.HasPrefix(expr[i:], tail) {
					i += len(tail)
					break
				}
			}
		default:
			b.WriteByte(toLower(c))
			i++
		}
	}
	return b.String()
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
