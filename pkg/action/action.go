// Package action defines the tagged action variant the engine returns from
// every keystroke: the set of effects a host shell must apply to its
// composition buffer, candidate window, and final text stream.
package action

import "fmt"

// Kind identifies which effect an Action carries.
type Kind uint8

const (
	// UpdateComposition shows Text as inline marked (underlined) text and
	// hides the candidate window.
	UpdateComposition Kind = iota
	// ShowCandidates shows Text as marked text and shows the candidate
	// window, populated from the engine's current candidate list.
	ShowCandidates
	// Commit inserts Text into the host application as final text.
	Commit
	// Reject indicates the key did not belong to any active composition;
	// the shell should pass it through to the system.
	Reject
)

// String returns the tag name, for logging.
func (k Kind) String() string {
	switch k {
	case UpdateComposition:
		return "UpdateComposition"
	case ShowCandidates:
		return "ShowCandidates"
	case Commit:
		return "Commit"
	case Reject:
		return "Reject"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Action is a single effect the shell must apply. Text is meaningful for
// every Kind except Reject, where it is always empty.
type Action struct {
	Kind Kind
	Text string
}

func (a Action) String() string {
	if a.Kind == Reject {
		return "Reject"
	}
	return fmt.Sprintf("%v(%q)", a.Kind, a.Text)
}

// NewUpdateComposition builds an UpdateComposition action.
func NewUpdateComposition(text string) Action {
	return Action{Kind: UpdateComposition, Text: text}
}

// NewShowCandidates builds a ShowCandidates action.
func NewShowCandidates(text string) Action {
	return Action{Kind: ShowCandidates, Text: text}
}

// NewCommit builds a Commit action.
func NewCommit(text string) Action {
	return Action{Kind: Commit, Text: text}
}

// NewReject builds a Reject action.
func NewReject() Action {
	return Action{Kind: Reject}
}

// ComposeOrShow builds UpdateComposition(text) if there are fewer than two
// candidates, else ShowCandidates(text). This is the recurring choice the
// engine makes every time it lands on a new trie node and knows its
// candidate count.
func ComposeOrShow(text string, numCandidates int) Action {
	if numCandidates >= 2 {
		return NewShowCandidates(text)
	}
	return NewUpdateComposition(text)
}
