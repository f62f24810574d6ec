package sqlschema

import (
	"regexp"
	"strconv"
	"strings"
)

// TypeTable maps a dialect's raw type names onto canonical types.
//
// Lookup order for a scalar type name:
//  1. Exact (after Normalize)
//  2. ArrayShortcuts
//  3. ArraySuffix: strip it and resolve the base name recursively
//  4. Infer
//  5. Unmapped passthrough
//
// Each recursive step strictly shortens the name, so resolution terminates.
type TypeTable struct {
	// Exact maps normalised raw names to canonical types.
	Exact map[string]*Type

	// ArrayShortcuts are array spellings resolved before the suffix rule
	// (e.g. "jsonb[]").
	ArrayShortcuts map[string]*Type

	// ArraySuffix marks an array type name (e.g. "[]").
	ArraySuffix string

	// ArrayPrefix marks an array type name on array nodes only
	// (e.g. "_" for Postgres udt names such as "_int4").
	ArrayPrefix string

	// Normalize canonicalises a raw name before lookup. Defaults to
	// trimming whitespace.
	Normalize func(string) string

	// Infer is consulted when nothing else matches. A nil return means
	// unmapped.
	Infer func(name string) *Type
}

func (tt *TypeTable) normalize(raw string) string {
	if tt.Normalize != nil {
		return tt.Normalize(raw)
	}

	return strings.TrimSpace(raw)
}

// Resolve maps a scalar type name.
func (tt *TypeTable) Resolve(raw string) *Type {
	name := tt.normalize(raw)

	if t, ok := tt.Exact[name]; ok {
		return t.Clone()
	}

	if t, ok := tt.ArrayShortcuts[name]; ok {
		return t.Clone()
	}

	if base, ok := tt.stripSuffix(raw); ok {
		return ArrayOf(tt.Resolve(base))
	}

	if tt.Infer != nil {
		if t := tt.Infer(name); t != nil {
			return t
		}
	}

	return Unmapped(strings.TrimSpace(raw))
}

// ResolveArray maps a name that the catalog declared to be an array. The
// suffix or prefix convention is stripped when present; otherwise the whole
// name is taken as the element type.
func (tt *TypeTable) ResolveArray(raw string) *Type {
	name := tt.normalize(raw)

	if t, ok := tt.ArrayShortcuts[name]; ok {
		return t.Clone()
	}

	if base, ok := tt.stripSuffix(raw); ok {
		return ArrayOf(tt.Resolve(base))
	}

	trimmed := strings.TrimSpace(raw)
	if tt.ArrayPrefix != "" && len(trimmed) > len(tt.ArrayPrefix) && strings.HasPrefix(trimmed, tt.ArrayPrefix) {
		return ArrayOf(tt.Resolve(trimmed[len(tt.ArrayPrefix):]))
	}

	return ArrayOf(tt.Resolve(trimmed))
}

func (tt *TypeTable) stripSuffix(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if tt.ArraySuffix == "" || len(trimmed) <= len(tt.ArraySuffix) || !strings.HasSuffix(trimmed, tt.ArraySuffix) {
		return "", false
	}

	return trimmed[:len(trimmed)-len(tt.ArraySuffix)], true
}

// DefaultRule is one (predicate, transform) pair of a default-expression
// rule chain. Match receives the trimmed expression.
type DefaultRule struct {
	Name  string
	Match func(expr string) bool
	Apply func(expr string) *Default
}

// DefaultRules is an ordered rule chain; the first matching rule wins.
// Order encodes precedence between overlapping textual shapes and must not
// be re-sorted.
type DefaultRules []DefaultRule

// Parse compiles a default node. An absent expression yields Absent, an
// empty (or all-whitespace) expression yields the empty string literal, and
// an expression no rule matches yields an unmapped passthrough of the
// trimmed text. Parse never fails.
func (rs DefaultRules) Parse(n *DefaultNode) *Default {
	raw, ok := n.RawExpression()
	if !ok {
		return Absent()
	}

	return rs.ParseString(raw)
}

// ParseString compiles a present default expression.
func (rs DefaultRules) ParseString(raw string) *Default {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return Literal("")
	}

	for _, r := range rs {
		if r.Match(expr) {
			return r.Apply(expr)
		}
	}

	return UnmappedDefault(expr)
}

// Match returns the name of the first rule matching expr, or "" if none
// does. It is used for diagnostics.
func (rs DefaultRules) Match(expr string) string {
	expr = strings.TrimSpace(expr)
	for _, r := range rs {
		if r.Match(expr) {
			return r.Name
		}
	}

	return ""
}

// Predicates.

// Pattern returns a predicate matching the regular expression.
func Pattern(re string) func(string) bool {
	return regexp.MustCompile(re).MatchString
}

// KeywordFold matches expressions equal to one of words, ignoring case.
func KeywordFold(words ...string) func(string) bool {
	return func(expr string) bool {
		for _, w := range words {
			if strings.EqualFold(expr, w) {
				return true
			}
		}

		return false
	}
}

// PrefixFold matches expressions starting with one of prefixes, ignoring case.
func PrefixFold(prefixes ...string) func(string) bool {
	return func(expr string) bool {
		for _, p := range prefixes {
			if len(expr) >= len(p) && strings.EqualFold(expr[:len(p)], p) {
				return true
			}
		}

		return false
	}
}

// AnyOf matches expressions matched by any of preds.
func AnyOf(preds ...func(string) bool) func(string) bool {
	return func(expr string) bool {
		for _, p := range preds {
			if p(expr) {
				return true
			}
		}

		return false
	}
}

// Yield returns a transform ignoring its input and producing f().
func Yield(f func() *Default) func(string) *Default {
	return func(string) *Default {
		return f()
	}
}

// YieldSentinel returns a transform producing the given sentinel.
func YieldSentinel(kind DefaultKind) func(string) *Default {
	return func(string) *Default {
		return Sentinel(kind)
	}
}

// Shared literal rules. Dialects compose them into their own chains.

var (
	quotedCastRe = regexp.MustCompile(`^'((?:[^']|'')*)'::[^']+$`)
	quotedRe     = regexp.MustCompile(`^'((?:[^']|'')*)'$`)
	integerRe    = regexp.MustCompile(`^[-+]?\d+$`)
	floatRe      = regexp.MustCompile(`^[-+]?(?:\d+\.\d*|\.\d+)$`)
)

// UnquoteSQL strips the surrounding single quotes of a SQL string literal
// and unescapes doubled quotes. It reports false if s is not exactly one
// literal.
func UnquoteSQL(s string) (string, bool) {
	m := quotedRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	return strings.ReplaceAll(m[1], "''", "'"), true
}

// FunctionCallRule classifies any identifier followed by parentheses as a
// function default.
func FunctionCallRule() DefaultRule {
	return DefaultRule{
		Name:  "function_call",
		Match: IsFunctionCall,
		Apply: FunctionDefault,
	}
}

// QuotedCastRule handles 'text'::type, returning the inner text. Coercion to
// the field's type is left to the consumer.
func QuotedCastRule() DefaultRule {
	return DefaultRule{
		Name:  "quoted_cast",
		Match: quotedCastRe.MatchString,
		Apply: func(expr string) *Default {
			m := quotedCastRe.FindStringSubmatch(expr)

			return Literal(strings.ReplaceAll(m[1], "''", "'"))
		},
	}
}

// QuotedRule handles a bare 'text' literal.
func QuotedRule() DefaultRule {
	return DefaultRule{
		Name:  "quoted",
		Match: quotedRe.MatchString,
		Apply: func(expr string) *Default {
			s, _ := UnquoteSQL(expr)

			return Literal(s)
		},
	}
}

// IntegerRule handles an anchored integer literal that fits in int64.
func IntegerRule() DefaultRule {
	return DefaultRule{
		Name: "integer",
		Match: func(expr string) bool {
			if !integerRe.MatchString(expr) {
				return false
			}

			_, err := strconv.ParseInt(expr, 10, 64)

			return err == nil
		},
		Apply: func(expr string) *Default {
			n, _ := strconv.ParseInt(expr, 10, 64)

			return Literal(n)
		},
	}
}

// FloatRule handles an anchored decimal literal with one decimal point.
func FloatRule() DefaultRule {
	return DefaultRule{
		Name: "float",
		Match: func(expr string) bool {
			if !floatRe.MatchString(expr) {
				return false
			}

			_, err := strconv.ParseFloat(expr, 64)

			return err == nil
		},
		Apply: func(expr string) *Default {
			f, _ := strconv.ParseFloat(expr, 64)

			return Literal(f)
		},
	}
}

// BooleanRule handles true/false in any case.
func BooleanRule() DefaultRule {
	return DefaultRule{
		Name:  "boolean",
		Match: KeywordFold("true", "false"),
		Apply: func(expr string) *Default {
			return Literal(strings.EqualFold(expr, "true"))
		},
	}
}
