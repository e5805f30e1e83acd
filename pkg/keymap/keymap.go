// Package keymap implements the immutable trigger trie: a rooted tree
// mapping trigger strings to ordered candidate lists, built once from a
// JSON description and safely shared by reference among any number of
// engines.
package keymap

import (
	"encoding/json"
	"fmt"
	"os"
)

// Node is a single position in the trie. candidates is the ordered,
// preference-ranked list of outputs associated with the prefix terminating
// here; it may be empty for a purely intermediate node. children maps the
// next input rune to the node reached by consuming it.
type Node struct {
	Candidates []string
	Children   map[rune]*Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Child returns the node reached by consuming r from n, if any.
func (n *Node) Child(r rune) (*Node, bool) {
	if n.Children == nil {
		return nil, false
	}
	c, ok := n.Children[r]
	return c, ok
}

// Keymap is an immutable prefix tree. The zero value is not usable; build
// one with Build or Load.
type Keymap struct {
	root *Node
}

// Root returns the keymap's root node.
func (k *Keymap) Root() *Node {
	return k.root
}

// wireNode mirrors the keymap JSON wire format:
//
//	Node ::= { "candidates"?: [string, ...], "children"?: { "<char>": Node, ... } }
type wireNode struct {
	Candidates []string            `json:"candidates"`
	Children   map[string]wireNode `json:"children"`
}

// Build constructs a Keymap from a JSON document. The root of the document
// is the root node of the trie. Build fails with a *LoadError wrapping the
// cause on malformed JSON, a non-string candidate, or a child key that is
// not exactly one Unicode scalar; on failure no partial Keymap is returned.
func Build(data []byte) (*Keymap, error) {
	var raw wireNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Kind: Parse, Cause: err}
	}

	root, err := convert(raw)
	if err != nil {
		return nil, &LoadError{Kind: Parse, Cause: err}
	}
	return &Keymap{root: root}, nil
}

// Load reads path and builds a Keymap from its contents. It wraps I/O
// failures in a *LoadError with Kind Io, and construction failures with
// Kind Parse.
func Load(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: Io, Cause: err}
	}
	return Build(data)
}

func convert(raw wireNode) (*Node, error) {
	n := &Node{Candidates: append([]string(nil), raw.Candidates...)}
	if len(raw.Children) == 0 {
		return n, nil
	}

	n.Children = make(map[rune]*Node, len(raw.Children))
	for key, childRaw := range raw.Children {
		runes := []rune(key)
		if len(runes) != 1 {
			return nil, fmt.Errorf("child key %q must be exactly one Unicode scalar, got %d", key, len(runes))
		}
		child, err := convert(childRaw)
		if err != nil {
			return nil, err
		}
		n.Children[runes[0]] = child
	}
	return n, nil
}

// Walk follows buffer's runes from root and returns the node they spell,
// which is always well-defined for a buffer actually produced by Engine
// (every node on a valid path has a child for the next rune in buffer).
// It returns false if buffer is not a valid path in the keymap.
func Walk(root *Node, buffer []rune) (*Node, bool) {
	n := root
	for _, r := range buffer {
		child, ok := n.Child(r)
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}
