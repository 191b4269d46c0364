package filter

import "strings"

// Operator is a predicate comparison operator understood by the retrieval index.
type Operator string

// Supported operators.
const (
	EQ       Operator = "=="
	NE       Operator = "!="
	Contains Operator = "contains"
	Like     Operator = "like"
	In       Operator = "in"
)

var operatorTable = map[string]Operator{
	"==":       EQ,
	"eq":       EQ,
	"contains": Contains,
	"like":     Like,
	"in":       In,
	"!=":       NE,
}

// ParseOperator maps a caller-supplied operator string to an Operator.
// Matching is case-insensitive; unknown or empty strings map to EQ.
func ParseOperator(s string) Operator {
	if op, ok := operatorTable[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op
	}
	return EQ
}

// Condition combines predicates of an expression.
type Condition string

// Boolean conditions.
const (
	And Condition = "and"
	Or  Condition = "or"
)

// ParseCondition maps "and"/"or" (any case) to a Condition. Anything else is And.
func ParseCondition(s string) Condition {
	if strings.EqualFold(strings.TrimSpace(s), string(Or)) {
		return Or
	}
	return And
}

// Predicate is a single (field, operator, value) constraint. Immutable.
type Predicate struct {
	field    string
	operator Operator
	value    string
}

// NewPredicate creates a predicate.
func NewPredicate(field string, op Operator, value string) Predicate {
	return Predicate{field: field, operator: op, value: value}
}

// Field returns the metadata field name.
func (p Predicate) Field() string { return p.field }

// Operator returns the comparison operator.
func (p Predicate) Operator() Operator { return p.operator }

// Value returns the comparison value.
func (p Predicate) Value() string { return p.value }

// Expression is an ordered list of predicates joined by one condition.
// An expression without predicates means "no filter", not an empty conjunction.
type Expression struct {
	predicates []Predicate
	condition  Condition
}

// None returns the "no filter" expression.
func None() Expression { return Expression{condition: And} }

// NewExpression builds an expression from predicates in order. With no predicates the
// result is None regardless of condition.
func NewExpression(predicates []Predicate, condition Condition) Expression {
	if len(predicates) == 0 {
		return None()
	}
	if condition != Or {
		condition = And
	}
	out := make([]Predicate, len(predicates))
	copy(out, predicates)
	return Expression{predicates: out, condition: condition}
}

// Predicates returns the predicates in order.
func (e Expression) Predicates() []Predicate { return e.predicates }

// Condition returns how predicates are combined.
func (e Expression) Condition() Condition {
	if e.condition == "" {
		return And
	}
	return e.condition
}

// IsEmpty reports whether the expression is "no filter".
func (e Expression) IsEmpty() bool { return len(e.predicates) == 0 }

// HasField reports whether any predicate constrains the given field.
func (e Expression) HasField(field string) bool {
	for _, p := range e.predicates {
		if p.field == field {
			return true
		}
	}
	return false
}
