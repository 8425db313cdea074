// Package filter is a small closed algebra of query predicates. Expressions are
// construction only: evaluation belongs to each backend.
package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/beam-cloud/onleads/pkg/types"
)

// Operator compares a field against a value
type Operator string

const (
	Equals         Operator = "equals"
	DoesNotEqual   Operator = "does_not_equal"
	Contains       Operator = "contains"
	DoesNotContain Operator = "does_not_contain"
	IsEmpty        Operator = "is_empty"
	IsNotEmpty     Operator = "is_not_empty"
)

func (o Operator) String() string {
	return string(o)
}

// Valid reports whether o is a known comparison operator
func (o Operator) Valid() bool {
	switch o {
	case Equals, DoesNotEqual, Contains, DoesNotContain, IsEmpty, IsNotEmpty:
		return true
	}
	return false
}

// BoolOperator joins the children of a CompositeFilter
type BoolOperator string

const (
	And BoolOperator = "and"
	Or  BoolOperator = "or"
)

func (o BoolOperator) String() string {
	return string(o)
}

// Expression is either a *FieldFilter or a *CompositeFilter
type Expression interface {
	isExpression()
	String() string
}

// FieldFilter compares one field
type FieldFilter struct {
	Field    string
	Operator Operator
	Value    any
}

func (*FieldFilter) isExpression() {}

func (f *FieldFilter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Operator, f.Value)
}

// CompositeFilter joins an ordered, non-empty list of expressions
type CompositeFilter struct {
	Operator BoolOperator
	Filters  []Expression
}

func (*CompositeFilter) isExpression() {}

func (c *CompositeFilter) String() string {
	parts := make([]string, 0, len(c.Filters))
	for _, child := range c.Filters {
		parts = append(parts, "("+child.String()+")")
	}
	return strings.Join(parts, " "+strings.ToUpper(string(c.Operator))+" ")
}

// Field builds a comparison. Malformed comparisons fail with *types.InvalidFilterError.
func Field(field string, op Operator, value any) (*FieldFilter, error) {
	if strings.TrimSpace(field) == "" {
		return nil, &types.InvalidFilterError{Reason: "field name is required"}
	}
	if !op.Valid() {
		return nil, &types.InvalidFilterError{Reason: fmt.Sprintf("unknown operator %q", op)}
	}
	return &FieldFilter{Field: field, Operator: op, Value: value}, nil
}

// MustField is Field for statically known comparisons
func MustField(field string, op Operator, value any) *FieldFilter {
	f, err := Field(field, op, value)
	if err != nil {
		panic(err)
	}
	return f
}

// NewComposite joins children with op. Empty child lists are rejected here rather
// than at query time.
func NewComposite(op BoolOperator, children []Expression) (*CompositeFilter, error) {
	if op != And && op != Or {
		return nil, &types.InvalidFilterError{Reason: fmt.Sprintf("unknown boolean operator %q", op)}
	}
	if len(children) == 0 {
		return nil, &types.InvalidFilterError{Reason: fmt.Sprintf("%s requires at least one filter", op)}
	}

	filters := make([]Expression, len(children))
	for i, child := range children {
		if isNil(child) {
			return nil, &types.InvalidFilterError{Reason: fmt.Sprintf("%s child %d is nil", op, i)}
		}
		filters[i] = child
	}
	return &CompositeFilter{Operator: op, Filters: filters}, nil
}

func AllOf(children ...Expression) (*CompositeFilter, error) {
	return NewComposite(And, children)
}

func AnyOf(children ...Expression) (*CompositeFilter, error) {
	return NewComposite(Or, children)
}

// Equal reports structural equality of two expressions
func Equal(a, b Expression) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}

	switch x := a.(type) {
	case *FieldFilter:
		y, ok := b.(*FieldFilter)
		return ok && x.Field == y.Field && x.Operator == y.Operator && reflect.DeepEqual(x.Value, y.Value)
	case *CompositeFilter:
		y, ok := b.(*CompositeFilter)
		if !ok || x.Operator != y.Operator || len(x.Filters) != len(y.Filters) {
			return false
		}
		for i := range x.Filters {
			if !Equal(x.Filters[i], y.Filters[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Walk visits every FieldFilter in pre-order, stopping at the first error
func Walk(expr Expression, fn func(*FieldFilter) error) error {
	switch e := expr.(type) {
	case nil:
		return nil
	case *FieldFilter:
		if e == nil {
			return nil
		}
		return fn(e)
	case *CompositeFilter:
		if e == nil {
			return nil
		}
		for _, child := range e.Filters {
			if err := Walk(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNil(expr Expression) bool {
	switch e := expr.(type) {
	case nil:
		return true
	case *FieldFilter:
		return e == nil
	case *CompositeFilter:
		return e == nil
	}
	return false
}
