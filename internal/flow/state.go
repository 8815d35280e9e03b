package flow

import (
	"fmt"
	"time"

	"github.com/ytget/yt-linkbot/internal/catalog"
)

// State is the position of a session in the download flow
type State string

const (
	StateIdle           State = "Idle"
	StateAwaitingChoice State = "AwaitingQualityChoice"
	StateFetching       State = "Fetching"
	StateDelivered      State = "Delivered"
	StateError          State = "Error"
)

// transitions lists the states reachable from each state
var transitions = map[State][]State{
	StateIdle:           {StateAwaitingChoice, StateFetching, StateError},
	StateAwaitingChoice: {StateFetching, StateError},
	StateFetching:       {StateDelivered, StateError},
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the session is over
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateError
}

// CanTransition reports whether a session may move from s to next
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session is one link's progress through the flow. It is keyed by the
// message that carries its choice buttons.
type Session struct {
	ConversationID int64
	MessageID      int
	State          State
	Result         *catalog.Result
	JobID          string
	UpdatedAt      time.Time
}

// transition moves the session to next or reports an illegal move
func (s *Session) transition(next State, now time.Time) error {
	if !s.State.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s", s.State, next)
	}
	s.State = next
	s.UpdatedAt = now
	return nil
}

type sessionKey struct {
	conversationID int64
	messageID      int
}
