package selector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// A selector is the conditional expression a recipe attaches to a dependency
// or test command in a trailing line comment, e.g. "# [py27 and not win]".
// The grammar is boolean identifiers, numeric comparisons against the "py"
// and "np" variables, "not", "and", "or", and parentheses.

var reComment = regexp.MustCompile(`\[\s*([^\[\]]+?)\s*\]`)

// FromComment extracts the selector expression from a YAML line comment.
// Returns the empty string when the comment carries no selector.
func FromComment(comment string) string {
	if comment == "" {
		return ""
	}
	m := reComment.FindStringSubmatch(comment)
	if m == nil {
		return ""
	}
	return m[1]
}

// Context is the platform and interpreter environment a selector is
// evaluated against.
type Context struct {
	// Platform is one of "linux", "osx", "win".
	Platform string

	// Arch is the target architecture, e.g. "x86_64", "arm64".
	Arch string

	// PyVersion is the interpreter version without the dot, the way the
	// packaging grammar encodes it: 27 for 2.7, 310 for 3.10.
	PyVersion int

	// NpVersion is the numpy ABI version in the same encoding, 0 if unset.
	NpVersion int
}

var rePyIdent = regexp.MustCompile(`^py(\d+)$`)

// value resolves a single identifier. Boolean identifiers resolve to 0 or 1.
func (c Context) value(ident string) (int, error) {
	boolVal := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}

	switch ident {
	case "linux", "osx", "win":
		return boolVal(c.Platform == ident), nil
	case "unix":
		return boolVal(c.Platform == "linux" || c.Platform == "osx"), nil
	case "x86", "x86_64", "arm64", "aarch64", "ppc64le":
		return boolVal(c.Arch == ident), nil
	case "py":
		return c.PyVersion, nil
	case "np":
		return c.NpVersion, nil
	case "py2k":
		return boolVal(c.PyVersion >= 20 && c.PyVersion < 30), nil
	case "py3k":
		return boolVal(c.PyVersion >= 30), nil
	case "True", "true":
		return 1, nil
	case "False", "false":
		return 0, nil
	}

	if m := rePyIdent.FindStringSubmatch(ident); m != nil {
		return boolVal(fmt.Sprintf("py%d", c.PyVersion) == ident), nil
	}

	return 0, fmt.Errorf("unknown selector identifier %q", ident)
}

// Expr is a parsed selector expression.
type Expr struct {
	root node
	raw  string
}

// String returns the source text the expression was parsed from.
func (e *Expr) String() string { return e.raw }

// Eval evaluates the expression against the given context. Unknown
// identifiers are an error, not false.
func (e *Expr) Eval(c Context) (bool, error) {
	v, err := e.root.eval(c)
	if err != nil {
		return false, fmt.Errorf("evaluating selector [%s]: %w", e.raw, err)
	}
	return v != 0, nil
}

// Parse parses a selector expression, the text between the brackets of a
// selector comment.
func Parse(expr string) (*Expr, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid selector [%s]: %w", expr, err)
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("invalid selector [%s]: %w", expr, err)
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("invalid selector [%s]: unexpected %q", expr, p.toks[p.pos].text)
	}
	return &Expr{root: root, raw: expr}, nil
}

// Eval is a convenience for Parse followed by Expr.Eval.
func Eval(expr string, c Context) (bool, error) {
	e, err := Parse(expr)
	if err != nil {
		return false, err
	}
	return e.Eval(c)
}

type node interface {
	eval(Context) (int, error)
}

type identNode string

func (n identNode) eval(c Context) (int, error) { return c.value(string(n)) }

type numNode int

func (n numNode) eval(Context) (int, error) { return int(n), nil }

type notNode struct{ inner node }

func (n notNode) eval(c Context) (int, error) {
	v, err := n.inner.eval(c)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 1, nil
	}
	return 0, nil
}

type binNode struct {
	op          string
	left, right node
}

func (n binNode) eval(c Context) (int, error) {
	l, err := n.left.eval(c)
	if err != nil {
		return 0, err
	}
	// Short-circuit the boolean operators the way the source grammar does.
	switch n.op {
	case "and":
		if l == 0 {
			return 0, nil
		}
	case "or":
		if l != 0 {
			return 1, nil
		}
	}
	r, err := n.right.eval(c)
	if err != nil {
		return 0, err
	}
	truth := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	switch n.op {
	case "and", "or":
		return truth(r != 0), nil
	case "==":
		return truth(l == r), nil
	case "!=":
		return truth(l != r), nil
	case "<":
		return truth(l < r), nil
	case "<=":
		return truth(l <= r), nil
	case ">":
		return truth(l > r), nil
	case ">=":
		return truth(l >= r), nil
	}
	return 0, fmt.Errorf("unknown operator %q", n.op)
}

type token struct {
	kind string // "ident", "num", "op", "lparen", "rparen"
	text string
}

func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == ' ' || ch == '\t':
			i++
		case ch == '(':
			toks = append(toks, token{"lparen", "("})
			i++
		case ch == ')':
			toks = append(toks, token{"rparen", ")"})
			i++
		case strings.ContainsRune("<>=!", rune(ch)):
			j := i + 1
			if j < len(s) && s[j] == '=' {
				j++
			}
			op := s[i:j]
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("unexpected character %q", op)
			}
			toks = append(toks, token{"op", op})
			i = j
		case ch >= '0' && ch <= '9':
			j := i
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			toks = append(toks, token{"num", s[i:j]})
			i = j
		case isIdentChar(ch):
			j := i
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			toks = append(toks, token{"ident", s[i:j]})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(ch))
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	return toks, nil
}

func isIdentChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "ident" || t.text != "or" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binNode{op: "or", left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "ident" || t.text != "and" {
			return left, nil
		}
		p.pos++
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = binNode{op: "and", left: left, right: right}
	}
}

func (p *parser) parseNot() (node, error) {
	if t, ok := p.peek(); ok && t.kind == "ident" && t.text == "not" {
		p.pos++
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.parseCmp()
}

func (p *parser) parseCmp() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if !ok || t.kind != "op" {
		return left, nil
	}
	p.pos++
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return binNode{op: t.text, left: left, right: right}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	switch t.kind {
	case "ident":
		if t.text == "and" || t.text == "or" || t.text == "not" {
			return nil, fmt.Errorf("unexpected keyword %q", t.text)
		}
		p.pos++
		return identNode(t.text), nil
	case "num":
		p.pos++
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return numNode(n), nil
	case "lparen":
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		t, ok := p.peek()
		if !ok || t.kind != "rparen" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}
