package mcondition

import "fmt"

// Operator is the comparison set a condition node can apply to a variable.
type Operator = string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
	OperatorExists      Operator = "exists"
)

var operatorSet = map[Operator]struct{}{
	OperatorEquals:      {},
	OperatorNotEquals:   {},
	OperatorGreaterThan: {},
	OperatorLessThan:    {},
	OperatorContains:    {},
	OperatorExists:      {},
}

func ValidOperator(op Operator) bool {
	_, ok := operatorSet[op]
	return ok
}

func ParseOperator(s string) (Operator, error) {
	if !ValidOperator(s) {
		return "", fmt.Errorf("unknown condition operator: %q", s)
	}
	return s, nil
}

// Condition compares the variable at Field against Value using Operator.
// Value is ignored for the exists operator.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}
