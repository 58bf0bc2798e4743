package compositor

import (
	"fmt"

	"github.com/ivlev/storyvideo/internal/timeline"
)

type StateKind int

const (
	// BeforeFirst is the black lead-in while page 0 fades in.
	BeforeFirst StateKind = iota
	OnPage
	Done
)

// State is the compositor cursor. Page is meaningful only for OnPage.
type State struct {
	Kind StateKind
	Page int
}

func (s State) String() string {
	switch s.Kind {
	case BeforeFirst:
		return "before-first"
	case OnPage:
		return fmt.Sprintf("page(%d)", s.Page)
	default:
		return "done"
	}
}

// index is the timeline page index of the state; -1 for the lead-in.
func (s State) index() int {
	if s.Kind == BeforeFirst {
		return -1
	}
	return s.Page
}

// advance moves the cursor past every page whose visible window ended
// before cTime. Several pages can be skipped in one call when they are
// shorter than a frame. The lead-in is skipped at once when there is no
// cross-fade to show.
func advance(tl *timeline.Timeline, s State, cTime int64) (State, bool) {
	if tl.Len() == 0 {
		return State{Kind: Done}, s.Kind != Done
	}
	changed := false
	for s.Kind != Done {
		i := s.index()
		leadInSkip := s.Kind == BeforeFirst && tl.CrossFade == 0
		if cTime <= tl.VisibleEnd(i) && !leadInSkip {
			break
		}
		changed = true
		if i+1 >= tl.Len() {
			s = State{Kind: Done}
			break
		}
		s = State{Kind: OnPage, Page: i + 1}
	}
	return s, changed
}
