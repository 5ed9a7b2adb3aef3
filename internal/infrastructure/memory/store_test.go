package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func turn(role domain.Role, content string) domain.Turn {
	return domain.Turn{Role: role, Content: content}
}

func TestStoreAppendTrimsToMaxTurns(t *testing.T) {
	store, err := NewStore(10, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		store.Append("C1:U1",
			turn(domain.RoleUser, fmt.Sprintf("q%d", i)),
			turn(domain.RoleAssistant, fmt.Sprintf("a%d", i)),
		)
	}

	conv := store.Load("C1:U1")
	require.Len(t, conv.Turns, 4)
	assert.Equal(t, "q1", conv.Turns[0].Content)
	assert.Equal(t, "a2", conv.Turns[3].Content)
}

func TestStoreLoadReturnsCopy(t *testing.T) {
	store, err := NewStore(10, 4)
	require.NoError(t, err)
	store.Append("k", turn(domain.RoleUser, "original"))

	conv := store.Load("k")
	conv.Turns[0].Content = "mutated"

	assert.Equal(t, "original", store.Load("k").Turns[0].Content)
}

func TestStoreUnknownKeyIsEmpty(t *testing.T) {
	store, err := NewStore(10, 4)
	require.NoError(t, err)

	conv := store.Load("nobody")
	assert.Equal(t, "nobody", conv.Key)
	assert.Empty(t, conv.Turns)
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store, err := NewStore(2, 4)
	require.NoError(t, err)

	store.Append("a", turn(domain.RoleUser, "1"))
	store.Append("b", turn(domain.RoleUser, "2"))
	store.Load("a")
	store.Append("c", turn(domain.RoleUser, "3"))

	assert.Equal(t, 2, store.Len())
	assert.Empty(t, store.Load("b").Turns)
	assert.Len(t, store.Load("a").Turns, 1)
}

func TestStoreConcurrentAppend(t *testing.T) {
	store, err := NewStore(10, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Append("k", turn(domain.RoleUser, "x"))
		}()
	}
	wg.Wait()
	assert.Len(t, store.Load("k").Turns, 50)
}
