// Package engine implements the mutable composition session: the per-
// keystroke decision procedure that walks an immutable keymap trie and
// produces the ordered action list a host shell must apply.
package engine

import (
	"github.com/vic0103520/unicorn/pkg/action"
	"github.com/vic0103520/unicorn/pkg/keymap"
)

const (
	trigger   = '\\'
	backspace = 0x08
)

// Engine holds the single mutable composition session: the buffer typed
// so far, the trie node it resolves to, and the selected candidate. It
// is not safe for concurrent use: one Engine is owned exclusively
// by one shell.
type Engine struct {
	km *keymap.Keymap

	active   bool
	buffer   []rune
	node     *keymap.Node
	selected uint32
}

// New creates an Engine over km, inactive. km is shared by reference and
// never mutated.
func New(km *keymap.Keymap) *Engine {
	return &Engine{km: km, node: km.Root()}
}

// NewFromPath loads a keymap from path and wraps it in a new, inactive
// Engine.
func NewFromPath(path string) (*Engine, error) {
	km, err := keymap.Load(path)
	if err != nil {
		return nil, err
	}
	return New(km), nil
}

// NewFromJSON builds a keymap from data and wraps it in a new, inactive
// Engine.
func NewFromJSON(data []byte) (*Engine, error) {
	km, err := keymap.Build(data)
	if err != nil {
		return nil, err
	}
	return New(km), nil
}

// GetCandidates returns the candidate list of the current node, or nil if
// the engine is inactive. Pure read.
func (e *Engine) GetCandidates() []string {
	if !e.active {
		return nil
	}
	return e.node.Candidates
}

// SelectCandidate points selected_index at index. Out of range is a
// no-op: the previous selection is left in place rather than clamped, so
// selected_index always stays a valid index into the current candidates.
func (e *Engine) SelectCandidate(index uint32) {
	if index >= uint32(len(e.node.Candidates)) {
		return
	}
	e.selected = index
}

// Deactivate forces the session closed: buffer cleared, node reset to
// root, selection reset. Used by the shell on focus loss or cancel, and
// internally whenever a rule commits and ends the session.
func (e *Engine) Deactivate() {
	e.active = false
	e.buffer = nil
	e.node = e.km.Root()
	e.selected = 0
}

// ReplaceKeymap swaps in a new, independently-built Keymap and deactivates
// any in-flight session, since the old session's node pointer belongs to
// the keymap being replaced. Used by a shell that hot-reloads the keymap
// file underneath a running Engine.
func (e *Engine) ReplaceKeymap(km *keymap.Keymap) {
	e.km = km
	e.Deactivate()
}

// ProcessKey consumes one Unicode scalar and returns the ordered action
// list the shell must apply. The list is never empty. Checks run in
// strict priority order: inactive activation or reject, then backspace,
// then re-trigger, then trie continuation or reject.
func (e *Engine) ProcessKey(c rune) []action.Action {
	if !e.active {
		if child, ok := e.km.Root().Child(c); ok {
			return e.activate(c, child)
		}
		return reject()
	}

	switch {
	case c == backspace:
		return e.backspace()
	case c == trigger:
		// A keymap with no '\\' root child has no trigger session to
		// restart; '\\' is then handled like any other key below.
		if child, ok := e.km.Root().Child(trigger); ok {
			return e.retrigger(child)
		}
	}

	if child, ok := e.node.Child(c); ok {
		return e.extend(c, child)
	}
	return reject()
}

// activate starts a session from inactive. Any root-level child can start
// a session -- the keymap, not a hardcoded rune, decides what activates
// (a keymap with a root-level "(1)" entry composes without any leading
// trigger key for exactly this reason). The stateful re-trigger in
// retrigger is, by contrast, scoped to '\\' specifically.
func (e *Engine) activate(c rune, child *keymap.Node) []action.Action {
	e.active = true
	e.buffer = []rune{c}
	e.node = child
	e.selected = 0

	return single(action.ComposeOrShow(string(e.buffer), len(child.Candidates)))
}

// backspace undoes the last keystroke. Rather than tracking a stack of
// visited nodes, it rebuilds node from root by walking the truncated
// buffer -- buffers are always short, and this keeps the Engine a plain
// value with no parent pointers into the trie.
func (e *Engine) backspace() []action.Action {
	if len(e.buffer) == 1 {
		e.Deactivate()
		return single(action.NewUpdateComposition(""))
	}

	e.buffer = e.buffer[:len(e.buffer)-1]
	e.node, _ = keymap.Walk(e.km.Root(), e.buffer) // always valid: buffer was a real path a moment ago
	e.selected = 0

	return single(action.ComposeOrShow(string(e.buffer), len(e.node.Candidates)))
}

// retrigger is the stateful re-activation triggered by a second '\\'
// mid-session: it commits the in-flight composition and starts a fresh
// trigger session in the same step, with no intervening inactive moment.
// child is the root's '\\' node, where the fresh session starts.
func (e *Engine) retrigger(child *keymap.Node) []action.Action {
	commit := e.commitText()

	e.active = true
	e.buffer = []rune{trigger}
	e.node = child
	e.selected = 0

	return []action.Action{
		action.NewCommit(commit),
		action.ComposeOrShow(string(e.buffer), len(child.Candidates)),
	}
}

// commitText is the text retrigger commits: the one-rune buffer as typed
// (the literal trigger, for a '\\' session) if the session never advanced
// past its first rune, otherwise the selected candidate if
// one is in range, otherwise the raw buffer as a fallback.
func (e *Engine) commitText() string {
	if len(e.buffer) == 1 {
		return string(e.buffer)
	}
	if int(e.selected) < len(e.node.Candidates) {
		return e.node.Candidates[e.selected]
	}
	return string(e.buffer)
}

// extend advances the buffer and node by one scalar, then classifies the
// new node by leaf-ness and candidate count.
func (e *Engine) extend(c rune, child *keymap.Node) []action.Action {
	e.buffer = append(e.buffer, c)
	e.node = child
	e.selected = 0

	k := len(child.Candidates)
	switch {
	case child.IsLeaf() && k == 0:
		// Dead branch: no candidate was ever attached to this prefix.
		// Commit the raw buffer as typed and end the session.
		text := string(e.buffer)
		e.Deactivate()
		return single(action.NewCommit(text))

	case child.IsLeaf() && k == 1:
		text := child.Candidates[0]
		e.Deactivate()
		return single(action.NewCommit(text))

	default:
		// Either a non-leaf, or a leaf with two or more candidates --
		// real keymaps give a leaf at most one candidate, but showing
		// the window rather than guessing a commit is the only reading
		// consistent with candidate order being the preference order
		// shown to the user.
		return single(action.ComposeOrShow(string(e.buffer), k))
	}
}

func reject() []action.Action {
	return single(action.NewReject())
}

func single(a action.Action) []action.Action {
	return []action.Action{a}
}
