package sandbox

import (
	"github.com/mitsuhiko/minijinja/minijinja-go/v2/parser"
	"github.com/shopspring/decimal"

	"github.com/ghostwriter-web/go-ghostwriter/pkg/value"
)

const (
	msgRecursiveStructure = "recursive structure detected"
	msgDivisionByZero     = "division by zero is not allowed"
	msgCannotEvaluate     = "cannot evaluate expression"
)

// assignments tracks template-local variable bindings during one runtime
// validation pass. A fresh map is created per pass and discarded afterwards.
type assignments map[string]value.Value

// evaluate runs the sandboxed evaluator on one expression node. It is the
// only boundary through which evaluation results leave the sandbox: every
// failure below is re-classified here so that nothing but a recursion
// verdict, a division-by-zero verdict, or the generic cannot-evaluate error
// ever escapes.
func (v *Validator) evaluate(node parser.Node, context map[string]any, assigns assignments) (value.Value, error) {
	result, err := v.evaluateNode(node, context, assigns)
	if err != nil {
		if IsKind(err, ErrRecursiveStructure) || IsKind(err, ErrDivisionByZero) {
			return value.None(), err
		}
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}
	return result, nil
}

// evaluateNode dispatches on the closed set of supported node kinds. There
// is deliberately no catch-all success path: a node kind without a handler
// fails.
func (v *Validator) evaluateNode(node parser.Node, context map[string]any, assigns assignments) (value.Value, error) {
	switch n := node.(type) {
	case *parser.Var:
		return v.evaluateName(n, context, assigns), nil
	case *parser.Const:
		return evaluateConst(n)
	case *parser.List:
		return v.evaluateList(n, context, assigns)
	case *parser.Map:
		return v.evaluateMap(n, context, assigns)
	case *parser.Call:
		return v.evaluateCall(n, context, assigns)
	case *parser.GetAttr:
		return v.evaluateGetAttr(n, context, assigns)
	case *parser.BinOp:
		return v.evaluateBinOp(n, context, assigns)
	default:
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}
}

// evaluateName resolves a bare name against the local assignments first,
// then the caller-supplied context. Values outside the sandbox model resolve
// to none rather than leaking through.
func (v *Validator) evaluateName(node *parser.Var, context map[string]any, assigns assignments) value.Value {
	if bound, ok := assigns[node.ID]; ok {
		return bound
	}
	if raw, ok := context[node.ID]; ok {
		converted, ok := value.FromAny(raw)
		if !ok {
			return value.None()
		}
		return converted
	}
	return value.None()
}

// evaluateConst converts literals. Numeric literals become arbitrary
// precision decimals, never floats, so precision loss cannot be used to
// slip past later numeric checks.
func evaluateConst(node *parser.Const) (value.Value, error) {
	switch literal := node.Value.(type) {
	case nil:
		return value.None(), nil
	case string:
		return value.FromString(literal), nil
	case bool:
		return value.FromBool(literal), nil
	case int64:
		return value.FromInt(literal), nil
	case float64:
		return value.FromFloat(literal), nil
	case *parser.BigInt:
		return value.FromDecimal(decimal.NewFromBigInt(literal.Int, 0)), nil
	default:
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}
}

func (v *Validator) evaluateList(node *parser.List, context map[string]any, assigns assignments) (value.Value, error) {
	list := value.NewList()
	for _, item := range node.Items {
		evaluated, err := v.evaluate(item, context, assigns)
		if err != nil {
			return value.None(), err
		}
		list.Append(evaluated)
	}
	result := value.FromList(list)
	if isRecursive(result) {
		return value.None(), NewError(ErrRecursiveStructure, msgRecursiveStructure)
	}
	return result, nil
}

func (v *Validator) evaluateMap(node *parser.Map, context map[string]any, assigns assignments) (value.Value, error) {
	mapping := value.NewMap()
	for i := range node.Keys {
		key, err := v.evaluate(node.Keys[i], context, assigns)
		if err != nil {
			return value.None(), err
		}
		name, ok := key.AsString()
		if !ok {
			return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
		}
		entry, err := v.evaluate(node.Values[i], context, assigns)
		if err != nil {
			return value.None(), err
		}
		mapping.Set(name, entry)
	}
	result := value.FromMap(mapping)
	if isRecursive(result) {
		return value.None(), NewError(ErrRecursiveStructure, msgRecursiveStructure)
	}
	return result, nil
}

// evaluateCall permits exactly two method calls, append and extend on a
// list receiver. The mutation is simulated on a copy and the result is
// re-checked for recursion; an argument that aliases the receiver is itself
// a recursion signal, since appending a list to itself is how cycles are
// built in template code.
func (v *Validator) evaluateCall(node *parser.Call, context map[string]any, assigns assignments) (value.Value, error) {
	method, ok := node.Expr.(*parser.GetAttr)
	if !ok {
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}
	if method.Name != "append" && method.Name != "extend" {
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}

	receiver, err := v.evaluate(method.Expr, context, assigns)
	if err != nil {
		return value.None(), err
	}
	receiverList, ok := receiver.AsList()
	if !ok {
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}

	args := make([]value.Value, 0, len(node.Args))
	for _, arg := range node.Args {
		if arg.Kind != parser.CallArgPos {
			return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
		}
		evaluated, err := v.evaluate(arg.Value, context, assigns)
		if err != nil {
			return value.None(), err
		}
		if evaluated.SameAs(receiver) || isRecursive(evaluated) {
			return value.None(), NewError(ErrRecursiveStructure, msgRecursiveStructure)
		}
		args = append(args, evaluated)
	}
	if len(args) != 1 {
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}

	mutated := receiverList.Clone()
	switch method.Name {
	case "append":
		mutated.Append(args[0])
	case "extend":
		extension, ok := args[0].AsList()
		if !ok {
			return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
		}
		mutated.Extend(extension)
	}

	result := value.FromList(mutated)
	if isRecursive(result) {
		return value.None(), NewError(ErrRecursiveStructure, msgRecursiveStructure)
	}
	return result, nil
}

// evaluateGetAttr resolves attribute access. Attribute absence is not a
// security event, so lookups that fail resolve to none instead of erroring.
func (v *Validator) evaluateGetAttr(node *parser.GetAttr, context map[string]any, assigns assignments) (value.Value, error) {
	receiver, err := v.evaluate(node.Expr, context, assigns)
	if err != nil {
		return value.None(), err
	}
	if receiver.IsNone() {
		return value.None(), nil
	}
	if mapping, ok := receiver.AsMap(); ok {
		if entry, ok := mapping.Get(node.Name); ok {
			return entry, nil
		}
	}
	return value.None(), nil
}

func (v *Validator) evaluateBinOp(node *parser.BinOp, context map[string]any, assigns assignments) (value.Value, error) {
	left, err := v.evaluate(node.Left, context, assigns)
	if err != nil {
		return value.None(), err
	}
	right, err := v.evaluate(node.Right, context, assigns)
	if err != nil {
		return value.None(), err
	}

	if ls, ok := left.AsString(); ok {
		rs, ok := right.AsString()
		if !ok || node.Op != parser.BinOpAdd {
			return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
		}
		return value.FromString(ls + rs), nil
	}

	ld, ok := left.AsDecimal()
	if !ok {
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}
	rd, ok := right.AsDecimal()
	if !ok {
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}

	switch node.Op {
	case parser.BinOpAdd:
		return value.FromDecimal(ld.Add(rd)), nil
	case parser.BinOpSub:
		return value.FromDecimal(ld.Sub(rd)), nil
	case parser.BinOpMul:
		return value.FromDecimal(ld.Mul(rd)), nil
	case parser.BinOpDiv:
		if rd.IsZero() {
			return value.None(), NewError(ErrDivisionByZero, msgDivisionByZero)
		}
		return value.FromDecimal(ld.Div(rd)), nil
	case parser.BinOpFloorDiv:
		if rd.IsZero() {
			return value.None(), NewError(ErrDivisionByZero, msgDivisionByZero)
		}
		return value.FromDecimal(ld.Div(rd).Floor()), nil
	case parser.BinOpRem:
		if rd.IsZero() {
			return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
		}
		return value.FromDecimal(ld.Mod(rd)), nil
	case parser.BinOpPow:
		if !powBounded(ld, rd) {
			return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
		}
		return value.FromDecimal(ld.Pow(rd)), nil
	default:
		return value.None(), NewError(ErrCannotEvaluate, msgCannotEvaluate)
	}
}

// maxPowResultDigits caps the digit count of an exponentiation result.
const maxPowResultDigits = 10000

// powBounded reports whether base ** exponent can be computed exactly at
// bounded cost. Exponentiation here is exact, not rounded to a working
// precision, so its cost grows with the result's digit count; an exponent
// large enough to blow past the cap makes the expression unevaluable
// instead of being computed.
func powBounded(base, exponent decimal.Decimal) bool {
	if !exponent.IsInteger() {
		return false
	}
	if base.IsZero() && exponent.Sign() < 0 {
		return false
	}
	magnitude := exponent.Abs()
	if magnitude.Cmp(decimal.NewFromInt(maxPowResultDigits)) > 0 {
		return false
	}
	return int64(base.NumDigits())*magnitude.IntPart() <= maxPowResultDigits
}
