package memory

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

const (
	DefaultCapacity = 1000
	DefaultMaxTurns = 10
)

// Store keeps recent conversation turns in process memory. The least recently
// used conversation is evicted once capacity is reached.
type Store struct {
	mu       sync.Mutex
	cache    *lru.Cache[string, []domain.Turn]
	maxTurns int
}

func NewStore(capacity, maxTurns int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	cache, err := lru.New[string, []domain.Turn](capacity)
	if err != nil {
		return nil, fmt.Errorf("create conversation cache: %w", err)
	}
	return &Store{cache: cache, maxTurns: maxTurns}, nil
}

func (s *Store) Load(key string) domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, _ := s.cache.Get(key)
	return domain.Conversation{Key: key, Turns: cloneTurns(turns)}
}

// Append adds turns and trims the conversation to the newest maxTurns entries.
func (s *Store) Append(key string, turns ...domain.Turn) domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, _ := s.cache.Get(key)
	next := make([]domain.Turn, 0, len(current)+len(turns))
	next = append(next, current...)
	next = append(next, turns...)
	if len(next) > s.maxTurns {
		next = next[len(next)-s.maxTurns:]
	}
	s.cache.Add(key, next)
	return domain.Conversation{Key: key, Turns: cloneTurns(next)}
}

func (s *Store) Len() int {
	return s.cache.Len()
}

func cloneTurns(turns []domain.Turn) []domain.Turn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}
