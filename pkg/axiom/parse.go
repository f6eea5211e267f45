package axiom

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSyntax is returned for malformed functional-syntax input.
var ErrSyntax = errors.New("axiom: syntax error")

type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokWord
	tokIRI
)

type token struct {
	kind tokenKind
	text string
	line int
}

func tokenize(src string, firstLine int) ([]token, error) {
	var toks []token
	line := firstLine
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(':
			toks = append(toks, token{kind: tokOpen, text: "(", line: line})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokClose, text: ")", line: line})
			i++
		case c == '<':
			end := strings.IndexByte(src[i+1:], '>')
			if end < 0 {
				return nil, fmt.Errorf("%w: line %d: unterminated IRI", ErrSyntax, line)
			}
			iri := src[i+1 : i+1+end]
			line += strings.Count(iri, "\n")
			toks = append(toks, token{kind: tokIRI, text: iri, line: line})
			i += end + 2
		default:
			start := i
			for i < len(src) && !strings.ContainsRune(" \t\r\n()<", rune(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: src[start:i], line: line})
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token, bool) {
	if p.done() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, error) {
	if p.done() {
		return token{}, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	if t.kind != kind {
		return t, fmt.Errorf("%w: line %d: unexpected %q", ErrSyntax, t.line, t.text)
	}
	return t, nil
}

func (p *parser) iri() (IRI, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	switch t.kind {
	case tokIRI:
		return IRI(t.text), nil
	case tokWord:
		switch t.text {
		case "owl:Thing":
			return Thing, nil
		case "owl:Nothing":
			return Nothing, nil
		}
		if nt, ok := p.peek(); ok && nt.kind == tokOpen {
			return "", fmt.Errorf("%w: line %d: expected IRI, got %s(...)", ErrSyntax, t.line, t.text)
		}
		return IRI(t.text), nil
	}
	return "", fmt.Errorf("%w: line %d: expected IRI, got %q", ErrSyntax, t.line, t.text)
}

func (p *parser) classExpression() (ClassExpression, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
	}
	if t.kind == tokWord {
		if nt := p.pos + 1; nt < len(p.toks) && p.toks[nt].kind == tokOpen {
			p.pos += 2
			switch t.text {
			case "ObjectComplementOf":
				op, err := p.classExpression()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(tokClose); err != nil {
					return nil, err
				}
				return Complement(op), nil
			case "ObjectIntersectionOf":
				ops, err := p.classList()
				if err != nil {
					return nil, err
				}
				if len(ops) < 2 {
					return nil, fmt.Errorf("%w: line %d: ObjectIntersectionOf needs two operands", ErrSyntax, t.line)
				}
				return Intersection(ops...), nil
			default:
				return nil, fmt.Errorf("%w: line %d: unsupported class constructor %s", ErrSyntax, t.line, t.text)
			}
		}
	}
	iri, err := p.iri()
	if err != nil {
		return nil, err
	}
	return NamedClass(iri), nil
}

// classList reads class expressions up to and including the closing paren.
func (p *parser) classList() ([]ClassExpression, error) {
	var out []ClassExpression
	for {
		t, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
		}
		if t.kind == tokClose {
			p.pos++
			return out, nil
		}
		ce, err := p.classExpression()
		if err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
}

func (p *parser) iriList() ([]IRI, error) {
	var out []IRI
	for {
		t, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: unexpected end of input", ErrSyntax)
		}
		if t.kind == tokClose {
			p.pos++
			return out, nil
		}
		iri, err := p.iri()
		if err != nil {
			return nil, err
		}
		out = append(out, iri)
	}
}

func (p *parser) statement() (Statement, error) {
	head, err := p.expect(tokWord)
	if err != nil {
		return Statement{}, err
	}
	if _, err := p.expect(tokOpen); err != nil {
		return Statement{}, err
	}
	arity := func(n int, got int) error {
		if got != n {
			return fmt.Errorf("%w: line %d: %s takes %d arguments, got %d", ErrSyntax, head.line, head.text, n, got)
		}
		return nil
	}
	switch head.text {
	case "Declaration":
		kind, err := p.expect(tokWord)
		if err != nil {
			return Statement{}, err
		}
		if _, err := p.expect(tokOpen); err != nil {
			return Statement{}, err
		}
		iri, err := p.iri()
		if err != nil {
			return Statement{}, err
		}
		for i := 0; i < 2; i++ {
			if _, err := p.expect(tokClose); err != nil {
				return Statement{}, err
			}
		}
		switch kind.text {
		case "Class":
			return Declare(Entity{Type: ClassEntity, IRI: iri}), nil
		case "NamedIndividual":
			return Declare(Entity{Type: IndividualEntity, IRI: iri}), nil
		case "ObjectProperty":
			return Declare(Entity{Type: PropertyEntity, IRI: iri}), nil
		}
		return Statement{}, fmt.Errorf("%w: line %d: unknown entity type %s", ErrSyntax, kind.line, kind.text)

	case "SubClassOf":
		cs, err := p.classList()
		if err != nil {
			return Statement{}, err
		}
		if err := arity(2, len(cs)); err != nil {
			return Statement{}, err
		}
		return SubClass(cs[0], cs[1]), nil

	case "EquivalentClasses", "DisjointClasses":
		cs, err := p.classList()
		if err != nil {
			return Statement{}, err
		}
		if len(cs) < 2 {
			return Statement{}, fmt.Errorf("%w: line %d: %s needs at least two classes", ErrSyntax, head.line, head.text)
		}
		if head.text == "EquivalentClasses" {
			return Equivalent(cs...), nil
		}
		return Disjoint(cs...), nil

	case "ClassAssertion":
		ce, err := p.classExpression()
		if err != nil {
			return Statement{}, err
		}
		ind, err := p.iri()
		if err != nil {
			return Statement{}, err
		}
		if _, err := p.expect(tokClose); err != nil {
			return Statement{}, err
		}
		return Assertion(ce, ind), nil

	case "ObjectPropertyAssertion":
		iris, err := p.iriList()
		if err != nil {
			return Statement{}, err
		}
		if err := arity(3, len(iris)); err != nil {
			return Statement{}, err
		}
		return PropertyAssertion(iris[0], iris[1], iris[2]), nil

	case "SubObjectPropertyOf":
		iris, err := p.iriList()
		if err != nil {
			return Statement{}, err
		}
		if err := arity(2, len(iris)); err != nil {
			return Statement{}, err
		}
		return SubProperty(iris[0], iris[1]), nil

	case "EquivalentObjectProperties":
		iris, err := p.iriList()
		if err != nil {
			return Statement{}, err
		}
		if len(iris) < 2 {
			return Statement{}, fmt.Errorf("%w: line %d: %s needs at least two properties", ErrSyntax, head.line, head.text)
		}
		return EquivalentProperties(iris...), nil
	}
	return Statement{}, fmt.Errorf("%w: line %d: unknown statement %s", ErrSyntax, head.line, head.text)
}

// Parse reads exactly one statement.
func Parse(src string) (Statement, error) {
	toks, err := tokenize(src, 1)
	if err != nil {
		return Statement{}, err
	}
	p := &parser{toks: toks}
	st, err := p.statement()
	if err != nil {
		return Statement{}, err
	}
	if t, ok := p.peek(); ok {
		return Statement{}, fmt.Errorf("%w: line %d: trailing input %q", ErrSyntax, t.line, t.text)
	}
	return st, nil
}

// ParseClassExpression reads exactly one class expression, such as "A" or
// "ObjectComplementOf(A)".
func ParseClassExpression(src string) (ClassExpression, error) {
	toks, err := tokenize(src, 1)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	ce, err := p.classExpression()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, fmt.Errorf("%w: line %d: trailing input %q", ErrSyntax, t.line, t.text)
	}
	return ce, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static tables.
func MustParse(src string) Statement {
	st, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return st
}

// ParseDocument reads every statement in r. Statements may span lines.
func ParseDocument(r io.Reader) ([]Statement, error) {
	var sb strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		sb.WriteString(sc.Text())
		sb.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading statements: %w", err)
	}
	toks, err := tokenize(sb.String(), 1)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var out []Statement
	for !p.done() {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Format writes statements one per line in canonical form.
func Format(w io.Writer, stmts []Statement) error {
	bw := bufio.NewWriter(w)
	for _, st := range stmts {
		if _, err := bw.WriteString(st.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
