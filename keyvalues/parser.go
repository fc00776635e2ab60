// SPDX-License-Identifier: GPL-2.0-or-later

// Package keyvalues is a minimal recursive-descent reader for Valve's
// KeyValues text format, sufficient for the ragdoll description block
// trailing a PHY file's solid blobs (spec §4.4). It has one collaborator
// (the physics decoder) and deliberately does not implement the full
// format (no #include, no conditionals): quoted and bare tokens, nested
// braces, and a flat list of duplicate-keyed children are all it needs.
package keyvalues

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformed is returned for unterminated quotes or unbalanced braces.
var ErrMalformed = errors.New("keyvalues: malformed")

// Node is one KeyValues entry: either a leaf with Value set, or a block
// with Children set. Duplicate keys are preserved as separate Children
// entries, matching how the format allows repeated blocks (e.g. multiple
// "solid" entries).
type Node struct {
	Key      string
	Value    string
	Children []Node
}

// Find returns the value of the first direct child leaf named key.
func (n Node) Find(key string) (string, bool) {
	for _, c := range n.Children {
		if strings.EqualFold(c.Key, key) {
			return c.Value, true
		}
	}
	return "", false
}

// FindAll returns every direct child named key, leaf or block.
func (n Node) FindAll(key string) []Node {
	var out []Node
	for _, c := range n.Children {
		if strings.EqualFold(c.Key, key) {
			out = append(out, c)
		}
	}
	return out
}

// Parse reads a sequence of top-level key/value and key/block pairs from
// buf (e.g. "solid { ... } ragdollconstraint { ... }") and returns them as
// a synthetic root Node's Children.
func Parse(buf []byte) (Node, error) {
	p := &parser{src: string(buf)}
	var root Node
	for {
		p.skipWhitespaceAndComments()
		if p.atEOF() {
			break
		}
		child, err := p.parsePair()
		if err != nil {
			return Node{}, err
		}
		root.Children = append(root.Children, child)
	}
	return root, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) atEOF() bool { return p.pos >= len(p.src) }

func (p *parser) skipWhitespaceAndComments() {
	for !p.atEOF() {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for !p.atEOF() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) parsePair() (Node, error) {
	key, err := p.parseToken()
	if err != nil {
		return Node{}, errors.Wrap(err, "keyvalues key")
	}

	p.skipWhitespaceAndComments()
	if p.atEOF() {
		return Node{}, errors.Wrapf(ErrMalformed, "key %q has no value", key)
	}

	if p.src[p.pos] == '{' {
		p.pos++
		var children []Node
		for {
			p.skipWhitespaceAndComments()
			if p.atEOF() {
				return Node{}, errors.Wrapf(ErrMalformed, "unterminated block %q", key)
			}
			if p.src[p.pos] == '}' {
				p.pos++
				break
			}
			child, err := p.parsePair()
			if err != nil {
				return Node{}, err
			}
			children = append(children, child)
		}
		return Node{Key: key, Children: children}, nil
	}

	val, err := p.parseToken()
	if err != nil {
		return Node{}, errors.Wrapf(err, "keyvalues value for %q", key)
	}
	return Node{Key: key, Value: val}, nil
}

func (p *parser) parseToken() (string, error) {
	if p.atEOF() {
		return "", errors.Wrap(ErrMalformed, "unexpected EOF")
	}
	if p.src[p.pos] == '"' {
		p.pos++
		start := p.pos
		for !p.atEOF() && p.src[p.pos] != '"' {
			p.pos++
		}
		if p.atEOF() {
			return "", errors.Wrap(ErrMalformed, "unterminated quoted token")
		}
		tok := p.src[start:p.pos]
		p.pos++
		return tok, nil
	}

	start := p.pos
	for !p.atEOF() && !isDelimiter(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", errors.Wrap(ErrMalformed, "empty bare token")
	}
	return p.src[start:p.pos], nil
}

func isDelimiter(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}'
}
