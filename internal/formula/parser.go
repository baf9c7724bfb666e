package formula

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/bnema/memsim/internal/domain"
)

// Variable is the only identifier a price formula may reference.
const Variable = "tvl"

var (
	errEmpty             = errors.New("empty formula")
	errUnexpectedEnd     = errors.New("unexpected end of formula")
	errUnbalancedParens  = errors.New("unbalanced parentheses")
	errNonFiniteResult   = errors.New("result is not a finite number")
	errUnknownIdentifier = errors.New("unknown identifier")
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenOperator
	tokenLParen
	tokenRParen
	tokenEOF
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

func tokenize(source string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(source) {
		c := source[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			start := i
			for i < len(source) && (isDigit(source[i]) || source[i] == '.') {
				i++
			}
			if i < len(source) && (source[i] == 'e' || source[i] == 'E') {
				j := i + 1
				if j < len(source) && (source[j] == '+' || source[j] == '-') {
					j++
				}
				if j < len(source) && isDigit(source[j]) {
					for j < len(source) && isDigit(source[j]) {
						j++
					}
					i = j
				}
			}
			text := source[start:i]
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, syntaxError(source, start, fmt.Errorf("malformed number %q", text))
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, value: value, pos: start})
		case isLetter(c):
			start := i
			for i < len(source) && (isLetter(source[i]) || isDigit(source[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: source[start:i], pos: start})
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '^':
			tokens = append(tokens, token{kind: tokenOperator, text: string(c), pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, text: ")", pos: i})
			i++
		default:
			return nil, syntaxError(source, i, fmt.Errorf("unexpected character %q", c))
		}
	}

	return append(tokens, token{kind: tokenEOF, pos: len(source)}), nil
}

// parser is a recursive-descent parser for
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | power
//	power   = primary [ "^" unary ]
//	primary = number | "tvl" | "(" expr ")"
//
// so "^" is right-associative and binds tighter than unary minus.
type parser struct {
	source string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOperator(ops ...string) bool {
	tok := p.peek()
	if tok.kind != tokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.text == op {
			return true
		}
	}
	return false
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.isOperator("+", "-") {
		op := p.next().text[0]
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOperator("*", "/") {
		op := p.next().text[0]
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.isOperator("-", "+") {
		op := p.next().text[0]
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == '-' {
			return negateNode{operand: operand}, nil
		}
		return operand, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isOperator("^") {
		p.next()
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: '^', left: base, right: exponent}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		return numberNode(tok.value), nil
	case tokenIdent:
		if tok.text != Variable {
			return nil, syntaxError(p.source, tok.pos, fmt.Errorf("%w %q", errUnknownIdentifier, tok.text))
		}
		return variableNode{}, nil
	case tokenLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokenRParen {
			return nil, syntaxError(p.source, closing.pos, errUnbalancedParens)
		}
		return inner, nil
	case tokenEOF:
		return nil, syntaxError(p.source, tok.pos, errUnexpectedEnd)
	default:
		return nil, syntaxError(p.source, tok.pos, fmt.Errorf("unexpected %q", tok.text))
	}
}

type node interface {
	eval(tvl float64) float64
}

type numberNode float64

func (n numberNode) eval(float64) float64 { return float64(n) }

type variableNode struct{}

func (variableNode) eval(tvl float64) float64 { return tvl }

type negateNode struct {
	operand node
}

func (n negateNode) eval(tvl float64) float64 { return -n.operand.eval(tvl) }

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(tvl float64) float64 {
	left := n.left.eval(tvl)
	right := n.right.eval(tvl)
	switch n.op {
	case '+':
		return left + right
	case '-':
		return left - right
	case '*':
		return left * right
	case '/':
		return left / right
	default:
		return math.Pow(left, right)
	}
}

// Expr is a compiled price formula.
type Expr struct {
	source string
	root   node
}

// Compile parses source into an Expr. Only numbers, the variable tvl,
// parentheses and the operators + - * / ^ are accepted.
func Compile(source string) (*Expr, error) {
	tokens, err := tokenize(source)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return nil, syntaxError(source, 0, errEmpty)
	}

	p := &parser{source: source, tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		if tok.kind == tokenRParen {
			return nil, syntaxError(source, tok.pos, errUnbalancedParens)
		}
		return nil, syntaxError(source, tok.pos, fmt.Errorf("unexpected %q", tok.text))
	}

	return &Expr{source: source, root: root}, nil
}

func (e *Expr) String() string {
	return e.source
}

// Eval evaluates the formula at tvl. A NaN or infinite result is reported
// as an evaluation-domain FormulaError.
func (e *Expr) Eval(tvl float64) (float64, error) {
	value := e.root.eval(tvl)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &domain.FormulaError{
			Kind:    domain.FormulaErrorEvaluationDomain,
			Formula: e.source,
			Err:     fmt.Errorf("%w at tvl=%g", errNonFiniteResult, tvl),
		}
	}
	return value, nil
}

func syntaxError(source string, pos int, err error) error {
	return &domain.FormulaError{Kind: domain.FormulaErrorSyntax, Formula: source, Pos: pos, Err: err}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
