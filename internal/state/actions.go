package state

import (
	"github.com/clearway-ai/chat-gateway/internal/model"
)

// Action is one state transition input. The set of actions is closed; Apply
// handles every variant exhaustively.
type Action interface {
	isAction()
}

// InitSessions hydrates the session list from storage at startup. The first
// session becomes active.
type InitSessions struct {
	Sessions []model.Session
}

// CreateSession appends a new session and makes it active.
type CreateSession struct {
	Session model.Session
}

// DeleteSession removes a session. Deleting the active session selects the
// first remaining session, or none. Unknown ids are a no-op.
type DeleteSession struct {
	ID string
}

// SetActiveSession changes the selection. Existence is not validated here;
// an unknown id simply yields no matching session.
type SetActiveSession struct {
	ID string
}

// AddMessage appends a message to the active session. A no-op when there is
// no active session.
type AddMessage struct {
	Message model.Message
}

// EditMessage rewrites history from a message onward: the edited message and
// everything after it are dropped and the replacement takes its position.
type EditMessage struct {
	MessageID   string
	Replacement model.Message
}

// UpdateSettings shallow-merges a patch into the settings record.
type UpdateSettings struct {
	Patch model.SettingsPatch
}

// UpdateSessionTitle renames a session. Titles are not unique.
type UpdateSessionTitle struct {
	SessionID string
	Title     string
}

// DeleteAllSessions clears the session list and the active selection.
type DeleteAllSessions struct{}

func (InitSessions) isAction()       {}
func (CreateSession) isAction()      {}
func (DeleteSession) isAction()      {}
func (SetActiveSession) isAction()   {}
func (AddMessage) isAction()         {}
func (EditMessage) isAction()        {}
func (UpdateSettings) isAction()     {}
func (UpdateSessionTitle) isAction() {}
func (DeleteAllSessions) isAction()  {}
