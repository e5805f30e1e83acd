// Package shell is a reference implementation of the host shell contract:
// implicit-commit-then-passthrough, candidate-window bookkeeping, and a
// line-oriented driver loop. It is not part of the functional core: a
// real platform IME shell owns its own event loop, candidate-window
// rendering and text insertion, and only needs to follow the same
// protocol this package implements against an *engine.Engine.
//
// Driver follows a line-oriented driver shape common to engine-facing
// protocol adapters: a struct embedding an async-closer, fed by an input
// channel, writing an output channel, processed by a single goroutine.
package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"

	"github.com/vic0103520/unicorn/pkg/action"
	"github.com/vic0103520/unicorn/pkg/engine"
	"github.com/vic0103520/unicorn/pkg/keymap"
)

// ProtocolName identifies this driver's line protocol.
const ProtocolName = "shell"

// Driver applies the shell protocol against one *engine.Engine: it reads
// whitespace-separated key tokens from in and writes one rendered output
// line per applied effect to the channel returned by NewDriver.
//
// Driver keeps its own mirror of the engine's active flag and its own copy
// of the current marked text, exactly as a real platform shell must: the
// core's GetCandidates() alone cannot distinguish "inactive" from "active
// at a node with no candidates", and the core exposes no raw-buffer
// accessor (GetCandidates/SelectCandidate/Deactivate/ProcessKey, plus
// ReplaceKeymap for hot-reload, are the entire surface).
type Driver struct {
	iox.AsyncCloser

	e   *engine.Engine
	out chan<- string

	active  bool   // the shell's own mirror of the engine's active flag
	marked  string // the shell's own copy of the current marked text (== buffer)
	uiIndex uint32 // the shell's own notion of the highlighted candidate row

	candidatesVisible atomic.Bool
	sessionID         lang.Optional[string]
	lastCommit        lang.Optional[string]
}

// NewDriver starts a Driver processing in in a background goroutine and
// returns it along with its output channel, closed when the driver stops.
func NewDriver(ctx context.Context, e *engine.Engine, in <-chan string) (*Driver, <-chan string) {
	return NewDriverWithReload(ctx, e, in, nil)
}

// NewDriverWithReload is NewDriver plus a keymap reload channel (typically
// fed by keymap.Watch). Every Keymap received on reload is applied via
// Engine.ReplaceKeymap from inside the driver's own goroutine, the same
// goroutine that calls Engine.ProcessKey for every key token -- Engine is
// owned by exactly one goroutine at a time, never touched concurrently by
// a second one. A nil reload channel disables hot-reload and behaves
// exactly like NewDriver.
func NewDriverWithReload(ctx context.Context, e *engine.Engine, in <-chan string, reload <-chan *keymap.Keymap) (*Driver, <-chan string) {
	out := make(chan string, 100)
	d := &Driver{
		AsyncCloser: iox.NewAsyncCloser(),
		e:           e,
		out:         out,
	}
	go d.process(ctx, in, reload)
	return d, out
}

func (d *Driver) process(ctx context.Context, in <-chan string, reload <-chan *keymap.Keymap) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "%v protocol initialized", ProtocolName)

	for {
		select {
		case line, ok := <-in:
			if !ok {
				logw.Infof(ctx, "input stream broken, exiting")
				return
			}
			for _, tok := range strings.Fields(line) {
				d.processToken(ctx, tok)
			}

		case km, ok := <-reload:
			if !ok {
				reload = nil
				continue
			}
			d.handleReload(ctx, km)

		case <-d.Closed():
			logw.Infof(ctx, "driver closed")
			return
		}
	}
}

// handleReload swaps in a freshly built keymap and reconciles the shell's
// own bookkeeping with the session Engine.ReplaceKeymap just deactivated.
func (d *Driver) handleReload(ctx context.Context, km *keymap.Keymap) {
	d.e.ReplaceKeymap(km)
	logw.Infof(ctx, "%vkeymap reloaded, active composition reset", d.logPrefix())
	d.transition(ctx, false)
}

// processToken handles one key token. Tokens are either navigation
// (UP/DOWN), a commit shortcut (1-9, SPACE, ENTER) applicable only while
// the candidate window is visible, or a key to hand to Engine.ProcessKey
// (BS, a literal single rune, or a decimal/0x-prefixed codepoint).
func (d *Driver) processToken(ctx context.Context, tok string) {
	switch {
	case tok == "UP":
		d.moveSelection(ctx, -1)
		return
	case tok == "DOWN":
		d.moveSelection(ctx, 1)
		return
	}

	if d.candidatesVisible.Load() {
		if n, ok := digitIndex(tok); ok {
			d.commitShortcut(ctx, n)
			return
		}
		if tok == "SPACE" || tok == "ENTER" {
			d.commitShortcut(ctx, int(d.uiIndex))
			return
		}
	}

	key, ok := parseKey(tok)
	if !ok {
		logw.Warningf(ctx, "malformed key token %q, ignoring", tok)
		return
	}

	wasActive := d.active
	acts := d.e.ProcessKey(key)

	if len(acts) == 1 && acts[0].Kind == action.Reject {
		d.handleReject(ctx, wasActive, tok)
		return
	}

	for _, act := range acts {
		d.render(ctx, act)
	}
	d.transition(ctx, nextActive(acts))
}

// nextActive derives whether the engine is active after applying acts,
// purely from the shape of the returned list -- the one thing Driver can
// observe without any core API beyond its public methods. A trailing
// ShowCandidates, or an UpdateComposition with non-empty text, means the
// session continues; a trailing UpdateComposition with empty text (the
// final backspace out of a composition) or a bare Commit (an auto-commit
// on reaching a leaf) means the engine deactivated itself.
func nextActive(acts []action.Action) bool {
	switch last := acts[len(acts)-1]; last.Kind {
	case action.ShowCandidates:
		return true
	case action.UpdateComposition:
		return last.Text != ""
	default: // action.Commit
		return false
	}
}

// digitIndex parses "1".."9" into the zero-based candidate index 0-8.
func digitIndex(tok string) (int, bool) {
	if len(tok) != 1 || tok[0] < '1' || tok[0] > '9' {
		return 0, false
	}
	return int(tok[0] - '1'), true
}

// parseKey resolves a token to the Unicode scalar Engine.ProcessKey
// expects: the literal "BS" for backspace, a single rune spelled out
// directly, or a decimal/0x-prefixed codepoint for keys that don't type
// as a literal token (e.g. "0x5C" for '\\').
func parseKey(tok string) (rune, bool) {
	if tok == "BS" {
		return 0x08, true
	}
	if runes := []rune(tok); len(runes) == 1 {
		return runes[0], true
	}
	if n, err := strconv.ParseInt(tok, 0, 32); err == nil {
		return rune(n), true
	}
	return 0, false
}

// moveSelection applies UP/DOWN directly against the candidate window;
// the shell never calls ProcessKey for arrow keys.
func (d *Driver) moveSelection(ctx context.Context, delta int) {
	n := len(d.e.GetCandidates())
	if n == 0 {
		return
	}
	next := int(d.uiIndex) + delta
	if next < 0 {
		next = 0
	}
	if next >= n {
		next = n - 1
	}
	d.uiIndex = uint32(next)
	d.e.SelectCandidate(d.uiIndex)
	logw.Debugf(ctx, "%vselect %v", d.logPrefix(), d.uiIndex)
}

// commitShortcut commits the candidate at index directly and
// deactivates, without ever telling the core about digits, space or
// enter.
func (d *Driver) commitShortcut(ctx context.Context, index int) {
	cands := d.e.GetCandidates()
	if index < 0 || index >= len(cands) {
		return
	}
	text := cands[index]
	d.e.Deactivate()
	d.emit(ctx, fmt.Sprintf("COMMIT %v", text))
	d.lastCommit = lang.Some(text)
	d.transition(ctx, false)
}

// handleReject implements implicit-commit-then-passthrough: on a lone
// Reject, if the engine was active before the call, commit the first
// candidate of the buffer's node -- or the shell's own marked-text copy
// of the buffer if there is none -- deactivate, then pass the key
// through.
func (d *Driver) handleReject(ctx context.Context, wasActive bool, tok string) {
	if wasActive {
		text := d.marked
		if cands := d.e.GetCandidates(); len(cands) > 0 {
			text = cands[0]
		}
		d.e.Deactivate()
		d.emit(ctx, fmt.Sprintf("COMMIT %v", text))
		d.lastCommit = lang.Some(text)
		d.transition(ctx, false)
	}
	d.emit(ctx, fmt.Sprintf("PASSTHROUGH %v", tok))
}

// render applies one action's rendering effect: updating the shell's own
// marked-text/candidate-visibility bookkeeping and emitting an output
// line. It does not touch d.active -- see transition.
func (d *Driver) render(ctx context.Context, act action.Action) {
	switch act.Kind {
	case action.UpdateComposition:
		d.candidatesVisible.Store(false)
		d.marked = act.Text
		d.uiIndex = 0
		d.emit(ctx, fmt.Sprintf("COMPOSE %v", act.Text))

	case action.ShowCandidates:
		d.candidatesVisible.Store(true)
		d.marked = act.Text
		d.uiIndex = 0
		d.emit(ctx, fmt.Sprintf("CANDIDATES %v [%v]", act.Text, strings.Join(d.e.GetCandidates(), ", ")))

	case action.Commit:
		d.lastCommit = lang.Some(act.Text)
		d.emit(ctx, fmt.Sprintf("COMMIT %v", act.Text))
	}
}

// transition moves the shell's own active mirror to newActive, minting or
// logging the end of a session's correlation id as the boundary is
// crossed. Calling this with the same value twice (e.g. a retrigger,
// which stays active throughout) is a no-op.
func (d *Driver) transition(ctx context.Context, newActive bool) {
	switch {
	case newActive && !d.active:
		d.active = true
		d.sessionID = lang.Some(uuid.NewString())
		logw.Debugf(ctx, "%vsession start", d.logPrefix())

	case !newActive && d.active:
		logw.Debugf(ctx, "%vsession end, last=%v", d.logPrefix(), d.lastCommit)
		d.active = false
		d.marked = ""
		d.uiIndex = 0
		d.candidatesVisible.Store(false)
		d.sessionID = lang.Optional[string]{}
	}
}

func (d *Driver) logPrefix() string {
	if id, ok := d.sessionID.V(); ok {
		return fmt.Sprintf("[%v] ", id)
	}
	return ""
}

func (d *Driver) emit(ctx context.Context, line string) {
	logw.Debugf(ctx, ">> %v", line)
	d.out <- line
}
