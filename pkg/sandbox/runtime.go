package sandbox

import (
	"github.com/mitsuhiko/minijinja/minijinja-go/v2/parser"
)

// ValidateRuntime runs the runtime phase against the caller's context. It
// replays assignments, loop iterables, and calls through the sandboxed
// evaluator looking for self-referential structures, then sweeps every
// division in the tree for a zero divisor. Expressions the sandbox cannot
// evaluate are skipped rather than failed here: the static phase has
// already rejected everything it can judge without a context, and the
// render engine enforces its own semantics on the rest.
func (v *Validator) ValidateRuntime(tpl *parser.Template, context map[string]any) error {
	assigns := make(assignments)

	err := walkTemplate(tpl, func(node parser.Node) error {
		switch n := node.(type) {
		case *parser.Set:
			target, ok := n.Target.(*parser.Var)
			if !ok {
				return nil
			}
			result, err := v.evaluate(n.Expr, context, assigns)
			if err != nil {
				if IsKind(err, ErrRecursiveStructure) || IsKind(err, ErrDivisionByZero) {
					return err
				}
				return nil
			}
			if isRecursive(result) {
				return NewError(ErrRecursiveStructure, msgRecursiveStructure)
			}
			assigns[target.ID] = result
		case *parser.ForLoop:
			result, err := v.evaluate(n.Iter, context, assigns)
			if err != nil {
				if IsKind(err, ErrRecursiveStructure) || IsKind(err, ErrDivisionByZero) {
					return err
				}
				return nil
			}
			if isRecursive(result) {
				return NewError(ErrRecursiveStructure, msgRecursiveStructure)
			}
		case *parser.Call:
			if _, err := v.evaluate(n, context, assigns); err != nil {
				if IsKind(err, ErrRecursiveStructure) || IsKind(err, ErrDivisionByZero) {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return v.sweepDivisions(tpl, context, assigns)
}

// sweepDivisions pre-checks every division in the tree, true division and
// floor division alike, against the live context. A divisor the sandbox
// cannot evaluate is left to the engine; a divisor it can evaluate to zero
// fails before rendering starts.
func (v *Validator) sweepDivisions(tpl *parser.Template, context map[string]any, assigns assignments) error {
	return walkTemplate(tpl, func(node parser.Node) error {
		binop, ok := node.(*parser.BinOp)
		if !ok {
			return nil
		}
		if binop.Op != parser.BinOpDiv && binop.Op != parser.BinOpFloorDiv {
			return nil
		}
		divisor, err := v.evaluate(binop.Right, context, assigns)
		if err != nil {
			if IsKind(err, ErrRecursiveStructure) || IsKind(err, ErrDivisionByZero) {
				return err
			}
			return nil
		}
		if divisor.IsZero() {
			return NewError(ErrDivisionByZero, msgDivisionByZero)
		}
		return nil
	})
}
