// Package chat implements the master chat dispatcher and command executor
// (spec §4.5, §4.6): session-scoped conversation state, build-intent
// detection that routes into the workflow builder meta-workflow, and a
// fallback command-extraction path for freeform chat responses.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Expiry is the session inactivity window spec §3/§4.5 names.
const Expiry = 30 * time.Minute

// Message is one turn in a ChatSession's transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the ChatSession record (spec §3).
type Session struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`

	// workflow is the per-session command-executor canvas state (spec
	// §4.6), kept alongside the conversation since commands accumulate
	// against one session's in-progress workflow.
	workflow commandState
}

// SessionStore holds every live ChatSession, evicting stale ones lazily on
// access and eagerly on List.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore constructs an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate resolves id to a live session, creating one if id is empty
// or unknown, and evicting it first if it has expired.
func (s *SessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			if time.Since(sess.LastActivity) > Expiry {
				delete(s.sessions, id)
			} else {
				return sess
			}
		}
	}

	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), LastActivity: time.Now()}
	s.sessions[sess.ID] = sess
	return sess
}

// Get resolves id without creating a new session, evicting it first if
// expired (spec §8's "get_session returns undefined and evicts").
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Since(sess.LastActivity) > Expiry {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

// List enumerates every live session, evicting stale ones eagerly first.
func (s *SessionStore) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > Expiry {
			delete(s.sessions, id)
		}
	}

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Delete removes a session unconditionally.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// appendMessage records one turn against sess, holding the store's lock
// the same way GetOrCreate/Get/List do — two concurrent Dispatcher.Chat
// calls against the same session id must not race on Messages/LastActivity
// (spec §5's "multiple executions may be requested concurrently by
// external transports").
func (s *SessionStore) appendMessage(sess *Session, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Messages = append(sess.Messages, Message{Role: role, Content: content, Timestamp: time.Now()})
	sess.LastActivity = time.Now()
}
