package conversation

import (
	"sync"

	"github.com/google/uuid"
	"github.com/snappy-loop/shadowtwin/internal/llm"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// Store keeps live sessions in memory for the API process.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

// Create starts a session and registers it under its id.
func (st *Store) Create(in models.SimulationInput, gen llm.Generator, opts ...Option) *Session {
	s := NewSession(in, gen, opts...)
	st.mu.Lock()
	st.sessions[s.ID()] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete drops a session and waits for its pending audio.
func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Wait()
	}
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
