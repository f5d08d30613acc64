// Package session tracks per-conversation history so follow-up questions can
// reference earlier exchanges. History lives in memory only: restarting the
// process clears all sessions, which matches the intended deployment where
// the browser keeps the session ID for the life of the page.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one completed question and answer. Intermediate tool turns are
// never stored; only what the user asked and what they were finally told.
type Exchange struct {
	Query  string
	Answer string
}

// Manager owns all active sessions. Safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string][]Exchange
	maxHistory int
}

// NewManager creates a session manager keeping at most maxHistory exchanges
// per session. A non-positive maxHistory disables history: sessions exist but
// remember nothing.
func NewManager(maxHistory int) *Manager {
	return &Manager{
		sessions:   make(map[string][]Exchange),
		maxHistory: maxHistory,
	}
}

// Create allocates a new empty session and returns its ID.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	return id
}

// AddExchange records a completed exchange, evicting the oldest entries
// beyond the history bound. Recording against an unknown ID creates the
// session, so clients that invent their own IDs still work.
func (m *Manager) AddExchange(id, query, answer string) {
	if m.maxHistory <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[id], Exchange{Query: query, Answer: answer})
	if len(history) > m.maxHistory {
		history = history[len(history)-m.maxHistory:]
	}
	m.sessions[id] = history
}

// History renders a session's exchanges as plain text for injection into the
// model's instructions. Returns "" for unknown or empty sessions.
func (m *Manager) History(id string) string {
	m.mu.Lock()
	history := m.sessions[id]
	m.mu.Unlock()

	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	for i, ex := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "User: %s\nAssistant: %s", ex.Query, ex.Answer)
	}
	return b.String()
}

// Clear forgets a session entirely.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
