package sandbox

import (
	"fmt"

	"github.com/mitsuhiko/minijinja/minijinja-go/v2/parser"
)

// walkTemplate visits every node of the parsed tree in document order,
// statements before the expressions they contain, and stops at the first
// error fn returns. The type switches are exhaustive over the parser's node
// set; a node kind the walker does not know cannot be inspected, so it
// aborts the walk instead of skipping silently.
func walkTemplate(tpl *parser.Template, fn func(parser.Node) error) error {
	if tpl == nil {
		return fmt.Errorf("sandbox: nil template tree")
	}
	if err := fn(tpl); err != nil {
		return err
	}
	return walkStmts(tpl.Children, fn)
}

func walkStmts(stmts []parser.Stmt, fn func(parser.Node) error) error {
	for _, stmt := range stmts {
		if err := walkStmt(stmt, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkStmt(stmt parser.Stmt, fn func(parser.Node) error) error {
	if stmt == nil {
		return nil
	}
	if err := fn(stmt); err != nil {
		return err
	}
	switch s := stmt.(type) {
	case *parser.Template:
		return walkStmts(s.Children, fn)
	case *parser.EmitRaw:
		return nil
	case *parser.EmitExpr:
		return walkExpr(s.Expr, fn)
	case *parser.ForLoop:
		if err := walkExpr(s.Target, fn); err != nil {
			return err
		}
		if err := walkExpr(s.Iter, fn); err != nil {
			return err
		}
		if err := walkExpr(s.FilterExpr, fn); err != nil {
			return err
		}
		if err := walkStmts(s.Body, fn); err != nil {
			return err
		}
		return walkStmts(s.ElseBody, fn)
	case *parser.IfCond:
		if err := walkExpr(s.Expr, fn); err != nil {
			return err
		}
		if err := walkStmts(s.TrueBody, fn); err != nil {
			return err
		}
		return walkStmts(s.FalseBody, fn)
	case *parser.WithBlock:
		for _, assignment := range s.Assignments {
			if err := walkExpr(assignment.Target, fn); err != nil {
				return err
			}
			if err := walkExpr(assignment.Value, fn); err != nil {
				return err
			}
		}
		return walkStmts(s.Body, fn)
	case *parser.Set:
		if err := walkExpr(s.Target, fn); err != nil {
			return err
		}
		return walkExpr(s.Expr, fn)
	case *parser.SetBlock:
		if err := walkExpr(s.Target, fn); err != nil {
			return err
		}
		if err := walkExpr(s.Filter, fn); err != nil {
			return err
		}
		return walkStmts(s.Body, fn)
	case *parser.AutoEscape:
		if err := walkExpr(s.Enabled, fn); err != nil {
			return err
		}
		return walkStmts(s.Body, fn)
	case *parser.FilterBlock:
		if err := walkExpr(s.Filter, fn); err != nil {
			return err
		}
		return walkStmts(s.Body, fn)
	case *parser.Block:
		return walkStmts(s.Body, fn)
	case *parser.Extends:
		return walkExpr(s.Name, fn)
	case *parser.Include:
		return walkExpr(s.Name, fn)
	case *parser.Import:
		if err := walkExpr(s.Expr, fn); err != nil {
			return err
		}
		return walkExpr(s.Name, fn)
	case *parser.FromImport:
		if err := walkExpr(s.Expr, fn); err != nil {
			return err
		}
		for _, name := range s.Names {
			if err := walkExpr(name.Name, fn); err != nil {
				return err
			}
			if err := walkExpr(name.Alias, fn); err != nil {
				return err
			}
		}
		return nil
	case *parser.Macro:
		for _, arg := range s.Args {
			if err := walkExpr(arg, fn); err != nil {
				return err
			}
		}
		for _, def := range s.Defaults {
			if err := walkExpr(def, fn); err != nil {
				return err
			}
		}
		return walkStmts(s.Body, fn)
	case *parser.CallBlock:
		if s.Call != nil {
			if err := walkExpr(s.Call, fn); err != nil {
				return err
			}
		}
		if s.MacroDecl != nil {
			if err := walkStmt(s.MacroDecl, fn); err != nil {
				return err
			}
		}
		return nil
	case *parser.Do:
		if s.Call != nil {
			return walkExpr(s.Call, fn)
		}
		return nil
	case *parser.Continue:
		return nil
	case *parser.Break:
		return nil
	default:
		return fmt.Errorf("sandbox: unknown statement node %T", stmt)
	}
}

func walkExpr(expr parser.Expr, fn func(parser.Node) error) error {
	if expr == nil {
		return nil
	}
	if err := fn(expr); err != nil {
		return err
	}
	switch e := expr.(type) {
	case *parser.Var:
		return nil
	case *parser.Const:
		return nil
	case *parser.UnaryOp:
		return walkExpr(e.Expr, fn)
	case *parser.BinOp:
		if err := walkExpr(e.Left, fn); err != nil {
			return err
		}
		return walkExpr(e.Right, fn)
	case *parser.IfExpr:
		if err := walkExpr(e.TestExpr, fn); err != nil {
			return err
		}
		if err := walkExpr(e.TrueExpr, fn); err != nil {
			return err
		}
		return walkExpr(e.FalseExpr, fn)
	case *parser.Filter:
		if err := walkExpr(e.Expr, fn); err != nil {
			return err
		}
		return walkCallArgs(e.Args, fn)
	case *parser.Test:
		if err := walkExpr(e.Expr, fn); err != nil {
			return err
		}
		return walkCallArgs(e.Args, fn)
	case *parser.GetAttr:
		return walkExpr(e.Expr, fn)
	case *parser.GetItem:
		if err := walkExpr(e.Expr, fn); err != nil {
			return err
		}
		return walkExpr(e.SubscriptExpr, fn)
	case *parser.Slice:
		if err := walkExpr(e.Expr, fn); err != nil {
			return err
		}
		if err := walkExpr(e.Start, fn); err != nil {
			return err
		}
		if err := walkExpr(e.Stop, fn); err != nil {
			return err
		}
		return walkExpr(e.Step, fn)
	case *parser.Call:
		if err := walkExpr(e.Expr, fn); err != nil {
			return err
		}
		return walkCallArgs(e.Args, fn)
	case *parser.List:
		for _, item := range e.Items {
			if err := walkExpr(item, fn); err != nil {
				return err
			}
		}
		return nil
	case *parser.Map:
		for i := range e.Keys {
			if err := walkExpr(e.Keys[i], fn); err != nil {
				return err
			}
			if err := walkExpr(e.Values[i], fn); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("sandbox: unknown expression node %T", expr)
	}
}

func walkCallArgs(args []parser.CallArg, fn func(parser.Node) error) error {
	for _, arg := range args {
		if err := walkExpr(arg.Value, fn); err != nil {
			return err
		}
	}
	return nil
}
