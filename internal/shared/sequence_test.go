package shared

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerDiscardsStaleTokens(t *testing.T) {
	s := NewSequencer()
	first := s.Next("shop-a")
	second := s.Next("shop-a")
	assert.Greater(t, second, first)

	var applied []uint64
	assert.True(t, s.Commit("shop-a", second, func() { applied = append(applied, second) }))
	assert.False(t, s.Commit("shop-a", first, func() { applied = append(applied, first) }))
	assert.Equal(t, []uint64{second}, applied)
}

func TestSequencerScopesAreIndependent(t *testing.T) {
	s := NewSequencer()
	a := s.Next("a")
	b := s.Next("b")
	assert.NotEqual(t, a, b)
	assert.True(t, s.IsLatest("a", a))
	assert.True(t, s.IsLatest("b", b))
	assert.False(t, s.IsLatest("c", 0))
}

func TestSequencerForgetsSettledScopes(t *testing.T) {
	s := NewSequencer()
	for i := 0; i < 1000; i++ {
		scope := string(rune('a' + i%26))
		tok := s.Next(scope)
		if i%2 == 0 {
			s.Commit(scope, tok, func() {})
		} else {
			s.Release(scope, tok)
		}
	}
	assert.Zero(t, s.Scopes())

	older := s.Next("x")
	newer := s.Next("x")
	assert.True(t, s.Commit("x", newer, nil))
	assert.Equal(t, 1, s.Scopes())
	assert.False(t, s.Commit("x", older, nil))
	assert.Zero(t, s.Scopes())
	assert.Greater(t, s.Next("x"), newer)
}

func TestSequencerConcurrentNext(t *testing.T) {
	s := NewSequencer()
	var wg sync.WaitGroup
	tokens := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- s.Next("scope")
		}()
	}
	wg.Wait()
	close(tokens)
	seen := make(map[uint64]bool)
	for tok := range tokens {
		assert.False(t, seen[tok], "duplicate token %d", tok)
		seen[tok] = true
	}
	assert.True(t, s.IsLatest("scope", 100))
}
