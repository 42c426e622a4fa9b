package story

import "context"

// State is the engine-level view of a session.
type State int

const (
	NotStarted State = iota
	AwaitingChoice
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingChoice:
		return "awaiting_choice"
	case Finished:
		return "finished"
	default:
		return "not_started"
	}
}

// Session is the persisted game progress of one chat.
type Session struct {
	ChatID         int64
	IsPlaying      bool
	CurrentStageID string
	// LastPromptMessageID is the message that carries the live keyboard; 0 when none.
	LastPromptMessageID int
}

// NewSession returns the default session of a chat that never played.
func NewSession(chatID int64) Session {
	return Session{ChatID: chatID}
}

// State derives the engine state. A stopped game keeps its stage and reads as Finished.
func (s Session) State() State {
	switch {
	case s.IsPlaying:
		return AwaitingChoice
	case s.CurrentStageID != "":
		return Finished
	default:
		return NotStarted
	}
}

// SessionStore persists sessions. Load returns (and stores) a default session for
// unknown chats; Save overwrites the stored one.
type SessionStore interface {
	Load(ctx context.Context, chatID int64) (Session, error)
	Save(ctx context.Context, s Session) error
}
