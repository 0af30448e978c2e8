package shared

import "sync"

// Sequencer issues monotonically increasing request tokens per scope so that a
// slow response cannot overwrite the result of a newer request. Every token
// from Next must be settled by Commit or Release; a scope is forgotten once
// none of its tokens are outstanding.
type Sequencer struct {
	mu     sync.Mutex
	last   uint64
	scopes map[string]*scopeState
}

type scopeState struct {
	latest  uint64
	pending int
}

// NewSequencer constructs an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{scopes: make(map[string]*scopeState)}
}

// Next issues a new token for scope, superseding every earlier token. Tokens
// are unique across scopes.
func (s *Sequencer) Next(scope string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scopes[scope]
	if !ok {
		st = &scopeState{}
		s.scopes[scope] = st
	}
	s.last++
	st.latest = s.last
	st.pending++
	return st.latest
}

// IsLatest reports whether token is the most recently issued for scope.
func (s *Sequencer) IsLatest(scope string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scopes[scope]
	return ok && token != 0 && st.latest == token
}

// Commit runs apply only when token is still the latest for scope and settles
// the token either way. The check and apply happen under the same lock.
func (s *Sequencer) Commit(scope string, token uint64, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.scopes[scope]
	if !ok || token == 0 {
		return false
	}
	current := st.latest == token
	if current && apply != nil {
		apply()
	}
	s.settle(scope, st)
	return current
}

// Release settles a token without applying anything.
func (s *Sequencer) Release(scope string, token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.scopes[scope]; ok && token != 0 {
		s.settle(scope, st)
	}
}

// Scopes returns the number of scopes with outstanding tokens.
func (s *Sequencer) Scopes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scopes)
}

func (s *Sequencer) settle(scope string, st *scopeState) {
	st.pending--
	if st.pending <= 0 {
		delete(s.scopes, scope)
	}
}
