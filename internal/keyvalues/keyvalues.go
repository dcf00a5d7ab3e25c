// Package keyvalues parses the KeyValues text format used by Source engine
// asset files (VMF maps, VMT materials): whitespace-separated key/value
// pairs, nested {} blocks, quoted or bare tokens and // line comments. Keys
// are case-insensitive; lookups normalize to lower case.
package keyvalues

import (
	"fmt"
	"strings"
)

// Block is one node of a parsed document. The document root is an unnamed
// block holding the top-level entries.
type Block struct {
	Name   string
	pairs  map[string]string
	Blocks []*Block
}

// Get returns the value for a key, case-insensitively.
func (b *Block) Get(key string) (string, bool) {
	v, ok := b.pairs[strings.ToLower(key)]
	return v, ok
}

// GetDefault returns the value for a key or the given fallback.
func (b *Block) GetDefault(key, fallback string) string {
	if v, ok := b.Get(key); ok {
		return v
	}
	return fallback
}

// Pairs returns the number of key/value pairs in the block.
func (b *Block) Pairs() int {
	return len(b.pairs)
}

// BlocksNamed returns the direct child blocks with the given name,
// case-insensitively.
func (b *Block) BlocksNamed(name string) []*Block {
	name = strings.ToLower(name)
	var out []*Block
	for _, child := range b.Blocks {
		if strings.ToLower(child.Name) == name {
			out = append(out, child)
		}
	}
	return out
}

// FirstBlock returns the first child block, which for single-rooted
// documents like VMT files is the document body.
func (b *Block) FirstBlock() (*Block, bool) {
	if len(b.Blocks) == 0 {
		return nil, false
	}
	return b.Blocks[0], true
}

// Walk visits every block in the subtree, depth first, root included.
func (b *Block) Walk(visit func(*Block)) {
	visit(b)
	for _, child := range b.Blocks {
		child.Walk(visit)
	}
}

func newBlock(name string) *Block {
	return &Block{Name: name, pairs: make(map[string]string)}
}

// Parse parses a KeyValues document into its root block.
func Parse(data []byte) (*Block, error) {
	lx := &lexer{input: string(data), line: 1}
	root := newBlock("")
	if err := parseInto(lx, root, true); err != nil {
		return nil, err
	}
	return root, nil
}

// parseInto fills a block with entries until a closing brace (or, at the top
// level, end of input).
func parseInto(lx *lexer, b *Block, topLevel bool) error {
	for {
		tok, ok := lx.next()
		if !ok {
			if topLevel {
				return nil
			}
			return fmt.Errorf("line %d: unexpected end of input inside block %q", lx.line, b.Name)
		}
		switch tok.kind {
		case tokClose:
			if topLevel {
				return fmt.Errorf("line %d: unexpected '}'", lx.line)
			}
			return nil
		case tokOpen:
			return fmt.Errorf("line %d: unexpected '{'", lx.line)
		}

		key := tok.text
		val, ok := lx.next()
		if !ok {
			return fmt.Errorf("line %d: key %q has no value", lx.line, key)
		}
		switch val.kind {
		case tokOpen:
			child := newBlock(key)
			if err := parseInto(lx, child, false); err != nil {
				return err
			}
			b.Blocks = append(b.Blocks, child)
		case tokClose:
			return fmt.Errorf("line %d: key %q has no value", lx.line, key)
		default:
			// Last occurrence wins, matching engine behavior for repeated
			// keys.
			b.pairs[strings.ToLower(key)] = val.text
		}
	}
}

type tokenKind int

const (
	tokString tokenKind = iota
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

type lexer struct {
	input string
	pos   int
	line  int
}

func (lx *lexer) next() (token, bool) {
	for lx.pos < len(lx.input) {
		c := lx.input[lx.pos]
		switch {
		case c == '\n':
			lx.line++
			lx.pos++
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
		case c == '/' && lx.pos+1 < len(lx.input) && lx.input[lx.pos+1] == '/':
			for lx.pos < len(lx.input) && lx.input[lx.pos] != '\n' {
				lx.pos++
			}
		case c == '{':
			lx.pos++
			return token{kind: tokOpen}, true
		case c == '}':
			lx.pos++
			return token{kind: tokClose}, true
		case c == '"':
			return lx.quoted()
		default:
			return lx.bare()
		}
	}
	return token{}, false
}

func (lx *lexer) quoted() (token, bool) {
	lx.pos++ // opening quote
	start := lx.pos
	for lx.pos < len(lx.input) {
		switch lx.input[lx.pos] {
		case '"':
			text := lx.input[start:lx.pos]
			lx.pos++
			return token{kind: tokString, text: text}, true
		case '\n':
			// Unterminated on this line; the engine is lenient here, so we
			// close the token at the newline.
			text := lx.input[start:lx.pos]
			return token{kind: tokString, text: text}, true
		}
		lx.pos++
	}
	return token{kind: tokString, text: lx.input[start:]}, true
}

func (lx *lexer) bare() (token, bool) {
	start := lx.pos
	for lx.pos < len(lx.input) {
		c := lx.input[lx.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}' || c == '"' {
			break
		}
		lx.pos++
	}
	return token{kind: tokString, text: lx.input[start:lx.pos]}, true
}
