package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trieql/leapstore/internal/errs"
	"github.com/trieql/leapstore/internal/sparql/lexer"
)

// ParseError reports a malformed query, carrying the offending token's text.
type ParseError struct {
	Token string
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Msg, e.Token)
}

func (e *ParseError) Unwrap() error { return errs.ErrParse }

// parser holds the token stream and parse position.
type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse tokenizes and parses one query per spec.md §4.6's grammar:
//
//	query    := prefix* "select" modifier? var+ "where" "{" pattern+ "}" limit?
func Parse(input string) (*Query, error) {
	p := &parser{toks: lexer.All(input)}

	q := &Query{Prefixes: map[string]string{}}

	for p.matchKeywordIgnoreCase("prefix") {
		if err := p.parsePrefix(q); err != nil {
			return nil, err
		}
	}

	if !p.matchKeywordIgnoreCase("select") {
		return nil, p.errorf("expected SELECT")
	}

	if m, ok := p.tryModifier(); ok {
		q.Modifier = m
	}

	if p.peekIsVariable() && p.cur().Text == "*" {
		p.advance()
		q.SelectStar = true
	} else {
		vars, err := p.parseVariableList()
		if err != nil {
			return nil, err
		}
		q.Variables = vars
	}

	if !p.matchKeywordIgnoreCase("where") {
		return nil, p.errorf("expected WHERE")
	}

	if !p.matchPunct("{") {
		return nil, p.errorf("expected '{' after WHERE")
	}
	patterns, err := p.parsePatternsUntil("}")
	if err != nil {
		return nil, err
	}
	q.Patterns = patterns

	if p.matchKeywordIgnoreCase("limit") {
		n, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		q.Limit = n
		q.HasLimit = true
	}

	if q.SelectStar {
		q.Variables = distinctVariables(q.Patterns)
	}

	return q, nil
}

func (p *parser) parsePrefix(q *Query) error {
	nameTok := p.cur()
	if nameTok.Kind != lexer.Identifier {
		return p.errorf("expected prefix name")
	}
	p.advance()
	if !p.matchPunct(":") {
		return p.errorf("expected ':' in prefix declaration")
	}
	iriTok := p.cur()
	if iriTok.Kind != lexer.IRI {
		return p.errorf("expected IRI in prefix declaration")
	}
	p.advance()
	q.Prefixes[nameTok.Text] = iriTok.Text
	return nil
}

func (p *parser) tryModifier() (Modifier, bool) {
	switch {
	case p.matchKeywordIgnoreCase("distinct"):
		return ModifierDistinct, true
	case p.matchKeywordIgnoreCase("reduced"):
		return ModifierReduced, true
	case p.matchKeywordIgnoreCase("count"):
		return ModifierCount, true
	case p.matchKeywordIgnoreCase("duplicates"):
		return ModifierDuplicates, true
	}
	return ModifierNone, false
}

func (p *parser) parseVariableList() ([]string, error) {
	var vars []string
	for p.peekIsVariable() {
		vars = append(vars, strings.TrimPrefix(p.cur().Text, "?"))
		p.advance()
	}
	if len(vars) == 0 {
		return nil, p.errorf("expected at least one variable or '*'")
	}
	return vars, nil
}

// parsePatternsUntil parses pattern+ up to and including the closing punct.
func (p *parser) parsePatternsUntil(closePunct string) ([]Pattern, error) {
	var patterns []Pattern
	for {
		if p.matchPunct(closePunct) {
			return patterns, nil
		}
		if p.cur().Kind == lexer.EOF {
			return nil, p.errorf("unexpected end of query, expected %q", closePunct)
		}
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
	}
}

func (p *parser) parsePattern() (Pattern, error) {
	switch {
	case p.matchKeywordIgnoreCase("optional"):
		if !p.matchPunct("{") {
			return Pattern{}, p.errorf("expected '{' after OPTIONAL")
		}
		inner, err := p.parsePatternsUntil("}")
		if err != nil {
			return Pattern{}, err
		}
		return Pattern{Kind: PatternOptional, Optional: inner}, nil

	case p.matchKeywordIgnoreCase("filter"):
		expr, err := p.parseParenthesized()
		if err != nil {
			return Pattern{}, err
		}
		return Pattern{Kind: PatternFilter, FilterExpr: expr}, nil

	default:
		triple, err := p.parseTriplePattern()
		if err != nil {
			return Pattern{}, err
		}
		p.matchPunct(".")
		return Pattern{Kind: PatternTriple, Triple: triple}, nil
	}
}

func (p *parser) parseTriplePattern() (TriplePattern, error) {
	s, err := p.parseTerm()
	if err != nil {
		return TriplePattern{}, err
	}
	pr, err := p.parseTerm()
	if err != nil {
		return TriplePattern{}, err
	}
	o, err := p.parseTerm()
	if err != nil {
		return TriplePattern{}, err
	}
	return TriplePattern{Subject: s, Predicate: pr, Object: o}, nil
}

func (p *parser) parseTerm() (Term, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Variable:
		p.advance()
		return Term{Kind: TermVariable, Text: tok.Text}, nil
	case lexer.IRI:
		p.advance()
		return Term{Kind: TermIRI, Text: tok.Text}, nil
	case lexer.String:
		p.advance()
		return Term{Kind: TermString, Text: tok.Text}, nil
	case lexer.Number:
		p.advance()
		return Term{Kind: TermNumber, Text: tok.Text}, nil
	case lexer.Identifier:
		p.advance()
		return Term{Kind: TermIdentifier, Text: tok.Text}, nil
	default:
		return Term{}, p.errorf("expected a term")
	}
}

// parseParenthesized consumes a balanced "(" ... ")" and returns the raw
// text between the parens, unevaluated (spec.md §9: FILTER is recorded but
// never evaluated).
func (p *parser) parseParenthesized() (string, error) {
	if !p.matchPunct("(") {
		return "", p.errorf("expected '(' after FILTER")
	}
	depth := 1
	var sb strings.Builder
	for {
		tok := p.cur()
		if tok.Kind == lexer.EOF {
			return "", p.errorf("unterminated FILTER expression")
		}
		if tok.Kind == lexer.Punct && tok.Text == "(" {
			depth++
		}
		if tok.Kind == lexer.Punct && tok.Text == ")" {
			depth--
			p.advance()
			if depth == 0 {
				return sb.String(), nil
			}
			continue
		}
		sb.WriteString(tok.Text)
		sb.WriteByte(' ')
		p.advance()
	}
}

func (p *parser) parseNumber() (int, error) {
	tok := p.cur()
	if tok.Kind != lexer.Number {
		return 0, p.errorf("expected a number")
	}
	p.advance()
	n := 0
	for _, r := range tok.Text {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func (p *parser) cur() lexer.Token {
	return p.toks[p.pos]
}

func (p *parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *parser) peekIsVariable() bool {
	return p.cur().Kind == lexer.Variable
}

func (p *parser) matchPunct(text string) bool {
	tok := p.cur()
	if (tok.Kind == lexer.Punct || tok.Kind == lexer.Variable) && tok.Text == text {
		p.advance()
		return true
	}
	return false
}

// matchKeywordIgnoreCase consumes the current token if it's an Identifier
// equal to keyword, case-insensitively.
func (p *parser) matchKeywordIgnoreCase(keyword string) bool {
	tok := p.cur()
	if tok.Kind == lexer.Identifier && strings.EqualFold(tok.Text, keyword) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Token: p.cur().Text, Msg: fmt.Sprintf(format, args...)}
}

// distinctVariables returns the sorted, deduplicated set of variable names
// occurring in the query's top-level triple patterns — the expansion of
// "select *" per spec.md §4.6.
func distinctVariables(patterns []Pattern) []string {
	seen := map[string]bool{}
	var out []string
	var walk func([]Pattern)
	walk = func(ps []Pattern) {
		for _, pat := range ps {
			if pat.Kind != PatternTriple {
				continue
			}
			for _, t := range []Term{pat.Triple.Subject, pat.Triple.Predicate, pat.Triple.Object} {
				if t.IsVariable() {
					name := strings.TrimPrefix(t.Text, "?")
					if !seen[name] {
						seen[name] = true
						out = append(out, name)
					}
				}
			}
		}
	}
	walk(patterns)
	sort.Strings(out)
	return out
}
