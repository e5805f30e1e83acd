package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vic0103520/unicorn/pkg/action"
	"github.com/vic0103520/unicorn/pkg/engine"
)

// testKeymapJSON: \lambda -> λ, \l -> [λ, ...] with multiple candidates,
// \== -> ≡ (single-candidate leaf), (1) -> ⑴, (1 -> [⑴, ...] with multiple
// candidates.
const testKeymapJSON = `{
  "children": {
    "\\": {
      "candidates": ["\\"],
      "children": {
        "l": {
          "candidates": ["λ", "⌈"],
          "children": {
            "a": { "children": { "m": { "children": { "b": { "children": { "d": { "children": { "a": { "candidates": ["λ"] } } } } } } } } }
          }
        },
        "=": {
          "children": { "=": { "candidates": ["≡"] } }
        }
      }
    },
    "(": {
      "candidates": ["⑴"],
      "children": {
        "1": {
          "candidates": ["⑴", "⒈"],
          "children": { ")": { "candidates": ["⑴"] } }
        }
      }
    }
  }
}`

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.NewFromJSON([]byte(testKeymapJSON))
	require.NoError(t, err)
	return e
}

func typeString(e *engine.Engine, s string) [][]action.Action {
	var out [][]action.Action
	for _, r := range s {
		out = append(out, e.ProcessKey(r))
	}
	return out
}

// \lambda -> Commit(λ), engine inactive.
func TestScenario_Lambda(t *testing.T) {
	e := newTestEngine(t)

	results := typeString(e, `\lambda`)
	last := results[len(results)-1]

	require.Len(t, last, 1)
	assert.Equal(t, action.NewCommit("λ"), last[0])
	assert.Nil(t, e.GetCandidates())
}

// \l then z is not a valid continuation -> Reject; shell is
// responsible for implicit commit + passthrough, not the engine.
func TestScenario_RejectAfterCandidates(t *testing.T) {
	e := newTestEngine(t)

	r1 := e.ProcessKey('\\')
	require.Equal(t, []action.Action{action.NewUpdateComposition("\\")}, r1)

	r2 := e.ProcessKey('l')
	require.Equal(t, []action.Action{action.NewShowCandidates("\\l")}, r2)
	assert.Equal(t, []string{"λ", "⌈"}, e.GetCandidates())

	r3 := e.ProcessKey('z')
	assert.Equal(t, []action.Action{action.NewReject()}, r3)

	// The engine itself is untouched by the reject: state still reflects
	// the \l composition so the shell can still read GetCandidates().
	assert.Equal(t, []string{"λ", "⌈"}, e.GetCandidates())
}

// \\ -- the second backslash commits a literal backslash and
// re-activates in the same step.
func TestScenario_DoubleTrigger(t *testing.T) {
	e := newTestEngine(t)

	r1 := e.ProcessKey('\\')
	require.Equal(t, []action.Action{action.NewUpdateComposition("\\")}, r1)

	r2 := e.ProcessKey('\\')
	assert.Equal(t, []action.Action{
		action.NewCommit("\\"),
		action.NewUpdateComposition("\\"),
	}, r2)
}

// \== consumes to a single-candidate leaf and auto-commits.
func TestScenario_SingleCandidateLeaf(t *testing.T) {
	e := newTestEngine(t)

	results := typeString(e, `\==`)
	last := results[len(results)-1]

	assert.Equal(t, []action.Action{action.NewCommit("≡")}, last)
	assert.Nil(t, e.GetCandidates())
}

// (1) activates without a leading trigger -- activation
// starts a session from any root-level child, not just '\\'.
func TestScenario_ParenActivation(t *testing.T) {
	e := newTestEngine(t)

	r1 := e.ProcessKey('(')
	assert.Equal(t, []action.Action{action.NewUpdateComposition("(")}, r1)

	r2 := e.ProcessKey('1')
	assert.Equal(t, []action.Action{action.NewShowCandidates("(1")}, r2)
	assert.Equal(t, []string{"⑴", "⒈"}, e.GetCandidates())

	r3 := e.ProcessKey(')')
	assert.Equal(t, []action.Action{action.NewCommit("⑴")}, r3)
	assert.Nil(t, e.GetCandidates())
}

// \l backspace backspace leaves the engine inactive with an
// empty buffer and no residual marked text.
func TestScenario_BackspaceToInactive(t *testing.T) {
	e := newTestEngine(t)

	typeString(e, `\l`)
	assert.NotNil(t, e.GetCandidates())

	r1 := e.ProcessKey(0x08)
	assert.Equal(t, []action.Action{action.NewUpdateComposition("\\")}, r1)

	r2 := e.ProcessKey(0x08)
	assert.Equal(t, []action.Action{action.NewUpdateComposition("")}, r2)
	assert.Nil(t, e.GetCandidates())
}

func TestInactiveNonActivatingKeyIsRejected(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, []action.Action{action.NewReject()}, e.ProcessKey('a'))
}

func TestBackspaceWhileInactiveIsRejected(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, []action.Action{action.NewReject()}, e.ProcessKey(0x08))
}

func TestSelectCandidate_OutOfRangeIsNoOp(t *testing.T) {
	e := newTestEngine(t)
	typeString(e, `\l`)

	e.SelectCandidate(1)
	e.SelectCandidate(99) // out of range: ignored, selection stays at 1

	r := e.ProcessKey('\\') // re-trigger commits the selected candidate
	assert.Equal(t, []action.Action{
		action.NewCommit("⌈"),
		action.NewUpdateComposition("\\"),
	}, r)
}

func TestSelectCandidate_UsedOnCommit(t *testing.T) {
	e := newTestEngine(t)
	typeString(e, `\l`)

	e.SelectCandidate(0)
	r := e.ProcessKey('\\')
	assert.Equal(t, []action.Action{
		action.NewCommit("λ"),
		action.NewUpdateComposition("\\"),
	}, r)
}

func TestDeactivate_ResetsState(t *testing.T) {
	e := newTestEngine(t)
	typeString(e, `\l`)

	e.Deactivate()
	assert.Nil(t, e.GetCandidates())
	assert.Equal(t, []action.Action{action.NewReject()}, e.ProcessKey('l'))
}

// Backspace-undoes-one-trie-step law: from |buffer| >= 2, backspace
// restores the exact state that existed right after the removed
// character was consumed.
func TestLaw_BackspaceUndoesOneStep(t *testing.T) {
	e := newTestEngine(t)

	e.ProcessKey('\\')
	afterBackslash := e.GetCandidates()

	e.ProcessKey('l')
	afterL := e.GetCandidates()
	assert.NotEqual(t, afterBackslash, afterL)

	e.ProcessKey('a')
	e.ProcessKey(0x08)

	assert.Equal(t, afterL, e.GetCandidates())
}

// Determinism law: replaying the same input sequence against a fresh
// engine over the same keymap yields the exact same action stream.
func TestLaw_Deterministic(t *testing.T) {
	km := []byte(testKeymapJSON)
	seq := `\lambda`

	e1, err := engine.NewFromJSON(km)
	require.NoError(t, err)
	e2, err := engine.NewFromJSON(km)
	require.NoError(t, err)

	assert.Equal(t, typeString(e1, seq), typeString(e2, seq))
}

func TestNewFromJSON_InvalidKeymap(t *testing.T) {
	_, err := engine.NewFromJSON([]byte(`{not json`))
	assert.Error(t, err)
}
