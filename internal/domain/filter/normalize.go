package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Expansion selects how equivalence-class variants of a filter value are generated.
type Expansion string

// Expansion modes.
const (
	// ExpansionEncoded adds a %20-encoded copy of any value containing a space, with the
	// same field and operator. Exact matching; casing is preserved.
	ExpansionEncoded Expansion = "encoded"
	// ExpansionVariants adds lower-cased, underscore-joined and space-stripped forms,
	// matched with CONTAINS against the item's field and every configured variant field.
	// Substring matching: higher recall, lower precision.
	ExpansionVariants Expansion = "variants"
	// ExpansionNone emits only the predicate the caller asked for.
	ExpansionNone Expansion = "none"
)

// IsValid checks if the mode is one of the supported values.
func (e Expansion) IsValid() bool {
	return e == ExpansionEncoded || e == ExpansionVariants || e == ExpansionNone
}

// Normalizer turns loosely-typed filter payloads into expressions.
type Normalizer struct {
	mode          Expansion
	variantFields []string
}

// NewNormalizer creates a normalizer. An empty mode means ExpansionEncoded.
// variantFields is only used by ExpansionVariants.
func NewNormalizer(mode Expansion, variantFields ...string) *Normalizer {
	if mode == "" {
		mode = ExpansionEncoded
	}
	return &Normalizer{mode: mode, variantFields: variantFields}
}

// Mode returns the configured expansion mode.
func (n *Normalizer) Mode() Expansion { return n.mode }

// Normalize converts a decoded JSON payload of the form
//
//	{"filters": [{"key": ..., "value": ..., "operator": ...}], "condition": "and"|"or"}
//
// into an Expression. It never fails: absent, malformed or empty payloads yield None,
// and items without a key or with a null value are skipped.
func (n *Normalizer) Normalize(payload any) Expression {
	m, ok := payload.(map[string]any)
	if !ok {
		return None()
	}
	items, ok := m["filters"].([]any)
	if !ok || len(items) == 0 {
		return None()
	}

	var preds []Predicate
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		key, _ := item["key"].(string)
		value, ok := stringValue(item["value"])
		if key == "" || !ok {
			continue
		}
		opStr, _ := item["operator"].(string)
		op := ParseOperator(opStr)

		preds = append(preds, NewPredicate(key, op, value))
		preds = append(preds, n.expand(key, op, value)...)
	}

	cond, _ := m["condition"].(string)
	return NewExpression(preds, ParseCondition(cond))
}

// expand returns the variant predicates that follow the base predicate.
func (n *Normalizer) expand(key string, op Operator, value string) []Predicate {
	switch n.mode {
	case ExpansionEncoded:
		if strings.Contains(value, " ") {
			return []Predicate{NewPredicate(key, op, strings.ReplaceAll(value, " ", "%20"))}
		}
		return nil
	case ExpansionVariants:
		return n.variants(key, op, value)
	default:
		return nil
	}
}

func (n *Normalizer) variants(key string, op Operator, value string) []Predicate {
	lower := strings.ToLower(value)
	forms := uniqueStrings(
		lower,
		strings.ReplaceAll(lower, " ", "_"),
		strings.ReplaceAll(value, " ", ""),
	)

	fields := uniqueStrings(append([]string{key}, n.variantFields...)...)

	var out []Predicate
	for _, f := range fields {
		for _, form := range forms {
			if f == key && form == value && op == Contains {
				continue // identical to the base predicate
			}
			out = append(out, NewPredicate(f, Contains, form))
		}
	}
	return out
}

// stringValue renders a JSON scalar or list as a predicate value.
// Lists are comma-joined (used with IN). nil is not a usable value.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := stringValue(item); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(val), true
	}
}

func uniqueStrings(in ...string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
