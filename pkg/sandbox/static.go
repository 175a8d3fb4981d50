package sandbox

import (
	"bytes"
	"math/big"
	"unicode/utf8"

	"github.com/mitsuhiko/minijinja/minijinja-go/v2/parser"
)

// Validator performs the two validation phases over a template: the static
// phase inspects the raw bytes and the parsed tree without any context, and
// the runtime phase re-examines the tree against the caller's context.
type Validator struct {
	config Config
}

// New builds a validator. Limits default to the package constants and the
// restriction sets default to the built-in forbidden names.
func New(options ...Option) (*Validator, error) {
	config, err := newConfig(options...)
	if err != nil {
		return nil, err
	}
	return &Validator{config: config}, nil
}

// Config returns the validator's effective configuration.
func (v *Validator) Config() Config {
	return v.config
}

// ValidateTemplate runs the static phase: file-level checks on the raw
// bytes, then three sweeps over the parsed tree, in a fixed order so that
// the first failing check determines the reported error. On success it
// returns the parsed tree and the decoded source for the render phase.
func (v *Validator) ValidateTemplate(src []byte) (*parser.Template, string, error) {
	if len(src) > v.config.maxFileSize {
		return nil, "", NewError(ErrFileTooLarge, "Template file size exceeds maximum limit of %d bytes", v.config.maxFileSize)
	}
	if bytes.IndexByte(src, 0) >= 0 {
		return nil, "", NewError(ErrBinaryContent, "Template file contains invalid binary data")
	}
	if !utf8.Valid(src) {
		return nil, "", NewError(ErrInvalidEncoding, "Template file contains invalid UTF-8 bytes")
	}

	content := string(src)
	parsed := parser.ParseDefault(content, "template")
	if parsed.Err != nil {
		return nil, "", NewError(ErrSyntax, "%s", parsed.Err.Error())
	}

	if err := v.sweepRestrictedTags(parsed.Template); err != nil {
		return nil, "", err
	}
	if err := v.sweepRestrictedNames(parsed.Template); err != nil {
		return nil, "", err
	}
	if err := v.sweepLiteralRanges(parsed.Template); err != nil {
		return nil, "", err
	}
	return parsed.Template, content, nil
}

// sweepRestrictedTags rejects the tree if any forbidden tag construct
// appears anywhere in it, regardless of whether it would execute.
func (v *Validator) sweepRestrictedTags(tpl *parser.Template) error {
	return walkTemplate(tpl, func(node parser.Node) error {
		var tag string
		switch node.(type) {
		case *parser.Macro:
			tag = "macro"
		case *parser.CallBlock:
			tag = "macro"
		case *parser.Include:
			tag = "include"
		case *parser.Import, *parser.FromImport:
			tag = "import"
		case *parser.Extends:
			tag = "extends"
		case *parser.Do:
			tag = "do"
		default:
			return nil
		}
		if v.config.tagRestricted(tag) {
			return NewError(ErrRestrictedTag, "'%s' tag is not allowed", tag)
		}
		return nil
	})
}

// sweepRestrictedNames rejects any appearance of a forbidden identifier:
// attribute access, literal item access, bare variable use, function calls,
// and assignments. Nodes are visited in document order with statements
// before their expressions, so an assignment is reported as an assignment
// rather than as the variable use nested inside it.
func (v *Validator) sweepRestrictedNames(tpl *parser.Template) error {
	return walkTemplate(tpl, func(node parser.Node) error {
		switch n := node.(type) {
		case *parser.Set:
			if target, ok := n.Target.(*parser.Var); ok && v.config.attributeRestricted(target.ID) {
				return NewError(ErrRestrictedAssignment, "Assignment of restricted variable '%s' is forbidden", target.ID)
			}
			if name, ok := n.Expr.(*parser.Var); ok && v.config.attributeRestricted(name.ID) {
				return NewError(ErrRestrictedAssignment, "Assignment of restricted variable '%s' is forbidden", name.ID)
			}
			if call, ok := n.Expr.(*parser.Call); ok {
				if callee, ok := call.Expr.(*parser.Var); ok && v.config.attributeRestricted(callee.ID) {
					return NewError(ErrRestrictedAssignment, "Assignment involving restricted function '%s()' is forbidden", callee.ID)
				}
			}
		case *parser.Call:
			if callee, ok := n.Expr.(*parser.Var); ok && v.config.attributeRestricted(callee.ID) {
				return NewError(ErrRestrictedCall, "Call to restricted function '%s()' is forbidden", callee.ID)
			}
		case *parser.GetAttr:
			if v.config.attributeRestricted(n.Name) {
				return NewError(ErrRestrictedAttribute, "Access to restricted attribute '%s' is forbidden", n.Name)
			}
		case *parser.GetItem:
			if sub, ok := n.SubscriptExpr.(*parser.Const); ok {
				if name, ok := sub.Value.(string); ok && v.config.attributeRestricted(name) {
					return NewError(ErrRestrictedAttribute, "Access to restricted item '%s' is forbidden", name)
				}
			}
		case *parser.Var:
			if v.config.attributeRestricted(n.ID) {
				return NewError(ErrRestrictedVariable, "Use of restricted variable '%s' is forbidden", n.ID)
			}
		}
		return nil
	})
}

// sweepLiteralRanges bounds for-loops over range(...) whose arguments are
// all literal. Non-literal ranges cannot be judged statically and are left
// for the runtime phase and the engine's own limits.
func (v *Validator) sweepLiteralRanges(tpl *parser.Template) error {
	return walkTemplate(tpl, func(node parser.Node) error {
		loop, ok := node.(*parser.ForLoop)
		if !ok {
			return nil
		}
		call, ok := loop.Iter.(*parser.Call)
		if !ok {
			return nil
		}
		callee, ok := call.Expr.(*parser.Var)
		if !ok || callee.ID != "range" {
			return nil
		}

		bounds := make([]*big.Int, 0, len(call.Args))
		for _, arg := range call.Args {
			if arg.Kind != parser.CallArgPos {
				return nil
			}
			bound, ok := integerLiteral(arg.Value)
			if !ok {
				return nil
			}
			bounds = append(bounds, bound)
		}

		start, stop, step := big.NewInt(0), big.NewInt(0), big.NewInt(1)
		switch len(bounds) {
		case 1:
			stop = bounds[0]
		case 2:
			start, stop = bounds[0], bounds[1]
		case 3:
			start, stop, step = bounds[0], bounds[1], bounds[2]
		default:
			return nil
		}

		if step.Sign() == 0 {
			return NewError(ErrLoopRangeExceeded, "loop step cannot be zero")
		}
		if rangeIterations(start, stop, step).Cmp(big.NewInt(int64(v.config.maxRangeSize))) > 0 {
			return NewError(ErrLoopRangeExceeded, "loop range exceeds maximum limit of %d", v.config.maxRangeSize)
		}
		return nil
	})
}

// integerLiteral extracts an integer constant, unwrapping unary minus,
// which the parser does not fold. Literals are kept as big integers so
// that range arithmetic cannot overflow.
func integerLiteral(expr parser.Expr) (*big.Int, bool) {
	switch node := expr.(type) {
	case *parser.Const:
		switch literal := node.Value.(type) {
		case int64:
			return big.NewInt(literal), true
		case *parser.BigInt:
			return new(big.Int).Set(literal.Int), true
		default:
			return nil, false
		}
	case *parser.UnaryOp:
		if node.Op != parser.UnaryNeg {
			return nil, false
		}
		inner, ok := integerLiteral(node.Expr)
		if !ok {
			return nil, false
		}
		return inner.Neg(inner), true
	default:
		return nil, false
	}
}

// rangeIterations computes how many values range(start, stop, step) yields.
func rangeIterations(start, stop, step *big.Int) *big.Int {
	span := new(big.Int)
	divisor := new(big.Int)
	if step.Sign() > 0 {
		// (stop - start + step - 1) / step
		span.Sub(stop, start)
		span.Add(span, step)
		span.Sub(span, big.NewInt(1))
		divisor.Set(step)
	} else {
		// (start - stop - step - 1) / -step
		span.Sub(start, stop)
		span.Sub(span, step)
		span.Sub(span, big.NewInt(1))
		divisor.Neg(step)
	}
	if span.Sign() < 0 {
		return big.NewInt(0)
	}
	return span.Div(span, divisor)
}
