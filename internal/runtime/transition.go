package runtime

import (
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Resolve picks the successor of node. Edges are evaluated in declared order
// and the first match wins. It does not modify sc.
func Resolve(flow *domain.Flow, node *domain.Node, answer domain.Value, sc *domain.SessionContext) (*domain.Node, error) {
	for _, edge := range node.Edges {
		if !Matches(edge.Condition, answer, sc) {
			continue
		}
		next, ok := flow.Node(edge.NextNodeID)
		if !ok {
			return nil, fmt.Errorf("%w: flow '%s': edge from '%s' points to missing node '%s'",
				domain.ErrInvalidFlow, flow.ID, node.ID, edge.NextNodeID)
		}
		return next, nil
	}
	return nil, &domain.NoTransitionError{NodeID: node.ID}
}

// Matches evaluates a single edge condition.
func Matches(cond domain.Condition, answer domain.Value, sc *domain.SessionContext) bool {
	switch c := cond.(type) {
	case domain.Always:
		return true
	case domain.Eq:
		return operandValue(c.Left, answer, sc).Equal(c.Right)
	}
	return false
}

// operandValue reads the left side of an Eq condition.
// Unknown kinds and unparsable paths read as null.
func operandValue(op domain.Operand, answer domain.Value, sc *domain.SessionContext) domain.Value {
	switch op.Kind {
	case domain.OperandAnswer:
		return answer
	case domain.OperandContext:
		p, err := domain.ParsePath(op.Path)
		if err != nil {
			return domain.Null()
		}
		// Only the key is used; context reads always come from variables.
		return sc.Variables[p.Key]
	}
	return domain.Null()
}
