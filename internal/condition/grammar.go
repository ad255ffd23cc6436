package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// allowedBuiltins are the only expr builtins a condition may call
var allowedBuiltins = []string{"len", "lower", "upper", "trim", "hasPrefix", "hasSuffix", "split", "join"}

var allowedBinary = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"and": true, "or": true, "&&": true, "||": true,
	"in": true, "matches": true, "contains": true, "startsWith": true, "endsWith": true,
}

var allowedUnary = map[string]bool{"not": true, "!": true, "-": true, "+": true}

// checkGrammar parses the expression and rejects every construct outside the
// condition language: closures, predicates, let, pointers, ternaries, slices,
// map literals, pipes, method calls and nested member access.
func checkGrammar(expression string) *EvaluationError {
	if hasPipe(expression) {
		return &EvaluationError{Expression: expression, Phase: PhaseCheck, Err: errors.New("pipe operator is not allowed")}
	}
	tree, err := parser.Parse(expression)
	if err != nil {
		return &EvaluationError{Expression: expression, Phase: PhaseParse, Err: err}
	}
	g := &grammarGuard{}
	ast.Walk(&tree.Node, g)
	if g.err != nil {
		return &EvaluationError{Expression: expression, Phase: PhaseCheck, Err: g.err}
	}
	return nil
}

type grammarGuard struct {
	err error
}

func (g *grammarGuard) reject(format string, args ...any) {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
}

func (g *grammarGuard) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.NilNode, *ast.IdentifierNode, *ast.IntegerNode, *ast.FloatNode,
		*ast.BoolNode, *ast.StringNode, *ast.ConstantNode, *ast.ArrayNode:
	case *ast.UnaryNode:
		if !allowedUnary[n.Operator] {
			g.reject("operator %q is not allowed", n.Operator)
		}
	case *ast.BinaryNode:
		if !allowedBinary[n.Operator] {
			g.reject("operator %q is not allowed", n.Operator)
		}
	case *ast.MemberNode:
		switch {
		case n.Method:
			g.reject("method calls are not allowed")
		case n.Optional:
			g.reject("optional chaining is not allowed")
		default:
			if _, ok := n.Node.(*ast.IdentifierNode); !ok {
				g.reject("only one level of member access is allowed")
			}
		}
	case *ast.CallNode:
		if _, ok := n.Callee.(*ast.IdentifierNode); !ok {
			g.reject("only registered functions can be called")
		}
	case *ast.BuiltinNode:
		if !isAllowedBuiltin(n.Name) {
			g.reject("builtin %q is not allowed", n.Name)
		}
	case *ast.ChainNode:
		g.reject("optional chaining is not allowed")
	case *ast.SliceNode:
		g.reject("slices are not allowed")
	case *ast.PredicateNode:
		g.reject("closures and predicates are not allowed")
	case *ast.PointerNode:
		g.reject("pointers are not allowed")
	case *ast.ConditionalNode:
		g.reject("conditional expressions are not allowed")
	case *ast.VariableDeclaratorNode:
		g.reject("variable declarations are not allowed")
	case *ast.SequenceNode:
		g.reject("expression sequences are not allowed")
	case *ast.MapNode, *ast.PairNode:
		g.reject("map literals are not allowed")
	default:
		g.reject("unsupported expression %T", n)
	}
}

func isAllowedBuiltin(name string) bool {
	for _, b := range allowedBuiltins {
		if b == name {
			return true
		}
	}
	return false
}

// hasPipe reports whether a single "|" appears outside string literals
func hasPipe(s string) bool {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote != '`':
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '|':
			if i+1 < len(s) && s[i+1] == '|' {
				i++
				continue
			}
			return true
		}
	}
	return false
}

// membershipPatcher rewrites `a in b` into a call to the membership function so
// that strings, lists and maps share one set of semantics. `not in` is parsed as
// not(a in b) and needs no separate handling.
type membershipPatcher struct{}

func (membershipPatcher) Visit(node *ast.Node) {
	if b, ok := (*node).(*ast.BinaryNode); ok && b.Operator == "in" {
		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: membershipFunc},
			Arguments: []ast.Node{b.Left, b.Right},
		})
	}
}

// contains implements membership: substring for strings, element for lists,
// key for maps. Any other combination is false.
func contains(needle, haystack any) bool {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)
		return ok && strings.Contains(h, s)
	case []string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		for _, v := range h {
			if v == s {
				return true
			}
		}
		return false
	case []any:
		for _, v := range h {
			if looselyEqual(v, needle) {
				return true
			}
		}
		return false
	case map[string]any:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		_, found := h[s]
		return found
	case map[string]string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		_, found := h[s]
		return found
	default:
		return false
	}
}

// looselyEqual compares scalars, treating all numeric kinds as float64 so that
// JSON numbers match integer literals.
func looselyEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
