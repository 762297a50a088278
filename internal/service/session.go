// Package service provides business logic for the chat gateway. The session
// service owns the state object, runs every transition through the pure
// reducer, and performs the side effects the reducer is kept free of:
// mirroring to the persistent store and publishing events.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearway-ai/chat-gateway/internal/events"
	"github.com/clearway-ai/chat-gateway/internal/model"
	"github.com/clearway-ai/chat-gateway/internal/state"
	"github.com/clearway-ai/chat-gateway/internal/store"
	"github.com/clearway-ai/chat-gateway/pkg/logger"
	"github.com/clearway-ai/chat-gateway/pkg/metrics"
)

// ErrSessionNotFound is returned when a session id has no match.
var ErrSessionNotFound = errors.New("session not found")

// ErrMessageNotFound is returned when a message id has no match in the
// active session.
var ErrMessageNotFound = errors.New("message not found")

// SessionService handles session and settings operations.
type SessionService struct {
	mu        sync.RWMutex
	state     state.State
	store     *store.Store
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewSessionService creates a new session service. publisher may be nil.
func NewSessionService(st *store.Store, publisher *events.Publisher, log *logger.Logger) *SessionService {
	return &SessionService{
		state:     state.NewState(),
		store:     st,
		publisher: publisher,
		logger:    log,
	}
}

// Init hydrates state from the persistent store.
func (s *SessionService) Init(ctx context.Context) error {
	sessions, err := s.store.GetSessions()
	if err != nil {
		return err
	}
	settings, err := s.store.GetSettings()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = state.Apply(s.state, state.InitSessions{Sessions: sessions})
	s.state.Settings = settings
	metrics.SessionsActive.Set(float64(len(s.state.Sessions)))
	s.mu.Unlock()

	s.logger.Infow("state hydrated", "sessions", len(sessions))
	return nil
}

// dispatch applies an action under the write lock and mirrors the result to
// the store. Mirroring failures are logged, not fatal; the in-memory state
// stays authoritative for the process lifetime.
func (s *SessionService) dispatch(action state.Action) state.State {
	s.mu.Lock()
	s.state = state.Apply(s.state, action)
	next := s.state
	s.mu.Unlock()

	switch action.(type) {
	case state.UpdateSettings:
		if err := s.store.SaveSettings(next.Settings); err != nil {
			s.logger.Errorw("failed to persist settings", "error", err)
		}
	default:
		if err := s.store.SaveSessions(next.Sessions); err != nil {
			s.logger.Errorw("failed to persist sessions", "error", err)
		}
	}

	metrics.SessionsActive.Set(float64(len(next.Sessions)))
	return next
}

func (s *SessionService) publish(ctx context.Context, sessionID string, eventType model.EventType, metadata map[string]any) {
	if s.publisher == nil {
		return
	}
	event := &model.SessionEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Type:      eventType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warnw("failed to publish event", "type", eventType, "error", err)
	}
}

// Create creates a new session and makes it active.
func (s *SessionService) Create(ctx context.Context, title string) model.Session {
	sess := model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     title,
		CreatedAt: time.Now(),
	}
	next := s.dispatch(state.CreateSession{Session: sess})

	created := *next.Session(sess.ID)
	s.logger.Infow("session created", "session_id", created.ID, "title", created.Title)
	s.publish(ctx, created.ID, model.EventTypeSessionCreated, nil)
	return created
}

// Get retrieves a session by id.
func (s *SessionService) Get(id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.state.Session(id)
	if sess == nil {
		return model.Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// List returns all sessions and the active selection.
func (s *SessionService) List() ([]model.Session, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Session, len(s.state.Sessions))
	copy(out, s.state.Sessions)
	return out, s.state.ActiveSessionID
}

// Active returns the active session, if any.
func (s *SessionService) Active() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.state.ActiveSession()
	if sess == nil {
		return model.Session{}, false
	}
	return *sess, true
}

// SetActive selects a session. Unknown ids return ErrSessionNotFound so the
// API surface is not silently lossy; the reducer itself does not validate.
func (s *SessionService) SetActive(id string) error {
	s.mu.RLock()
	exists := s.state.Session(id) != nil
	s.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	s.dispatch(state.SetActiveSession{ID: id})
	return nil
}

// Delete removes a session. Unknown ids are a no-op (idempotent deletion).
func (s *SessionService) Delete(ctx context.Context, id string) {
	s.dispatch(state.DeleteSession{ID: id})
	s.logger.Infow("session deleted", "session_id", id)
	s.publish(ctx, id, model.EventTypeSessionDeleted, nil)
}

// DeleteAll clears every session and the active selection.
func (s *SessionService) DeleteAll(ctx context.Context) {
	s.dispatch(state.DeleteAllSessions{})
	s.logger.Infow("all sessions deleted")
	s.publish(ctx, "", model.EventTypeSessionsCleared, nil)
}

// UpdateTitle renames a session.
func (s *SessionService) UpdateTitle(ctx context.Context, id, title string) (model.Session, error) {
	if _, err := s.Get(id); err != nil {
		return model.Session{}, err
	}
	next := s.dispatch(state.UpdateSessionTitle{SessionID: id, Title: title})
	sess := next.Session(id)
	if sess == nil {
		// Deleted between the lookup and the dispatch.
		return model.Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// AppendMessage appends a message to the active session and returns the
// stored copy with defaults assigned. ok is false when no session is active.
func (s *SessionService) AppendMessage(ctx context.Context, msg model.Message) (model.Message, bool) {
	s.mu.RLock()
	activeID := s.state.ActiveSessionID
	s.mu.RUnlock()
	if activeID == "" {
		return model.Message{}, false
	}

	next := s.dispatch(state.AddMessage{Message: msg})
	sess := next.Session(activeID)
	if sess == nil || len(sess.Messages) == 0 {
		return model.Message{}, false
	}

	stored := sess.Messages[len(sess.Messages)-1]
	metrics.MessagesTotal.WithLabelValues(string(stored.Role), string(stored.Type)).Inc()
	s.publish(ctx, activeID, model.EventTypeMessageAppended, map[string]any{
		"message_id": stored.ID,
		"role":       string(stored.Role),
		"type":       string(stored.Type),
	})
	return stored, true
}

// ReplaceFrom rewrites the active session's history from the identified
// message onward with the replacement (regeneration semantics).
func (s *SessionService) ReplaceFrom(ctx context.Context, messageID string, replacement model.Message) (model.Message, error) {
	s.mu.RLock()
	activeID := s.state.ActiveSessionID
	sess := s.state.ActiveSession()
	found := false
	if sess != nil {
		for i := range sess.Messages {
			if sess.Messages[i].ID == messageID {
				found = true
				break
			}
		}
	}
	s.mu.RUnlock()
	if !found {
		return model.Message{}, ErrMessageNotFound
	}

	next := s.dispatch(state.EditMessage{MessageID: messageID, Replacement: replacement})
	edited := next.Session(activeID)
	if edited == nil || len(edited.Messages) == 0 {
		// Session deleted or history cleared between the lookup and the
		// dispatch, so the edit never applied.
		return model.Message{}, ErrMessageNotFound
	}
	stored := edited.Messages[len(edited.Messages)-1]

	s.publish(ctx, activeID, model.EventTypeHistoryRewritten, map[string]any{
		"edited_message_id": messageID,
		"message_id":        stored.ID,
	})
	return stored, nil
}

// NotifyProviderError broadcasts a provider failure to event consumers.
func (s *SessionService) NotifyProviderError(ctx context.Context, kind, reason string) {
	s.publish(ctx, "", model.EventTypeProviderError, map[string]any{
		"kind":   kind,
		"reason": reason,
	})
}

// APIKey returns the stored provider credential, empty when unset or
// unreadable.
func (s *SessionService) APIKey() string {
	key, err := s.store.GetAPIKey()
	if err != nil {
		s.logger.Warnw("failed to read stored credential", "error", err)
		return ""
	}
	return key
}

// SaveAPIKey persists the provider credential.
func (s *SessionService) SaveAPIKey(key string) error {
	return s.store.SaveAPIKey(key)
}

// RemoveAPIKey deletes the persisted provider credential.
func (s *SessionService) RemoveAPIKey() error {
	return s.store.RemoveAPIKey()
}

// Settings returns the current settings record.
func (s *SessionService) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// UpdateSettings shallow-merges a patch into settings.
func (s *SessionService) UpdateSettings(patch model.SettingsPatch) model.Settings {
	next := s.dispatch(state.UpdateSettings{Patch: patch})
	return next.Settings
}
