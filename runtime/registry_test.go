package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/contract"
)

type stubSession struct {
	userID int
}

func (s *stubSession) UserID() int              { return s.userID }
func (s *stubSession) WriteLine(_ []byte) error { return nil }
func (s *stubSession) Close() error             { return nil }

func TestRegistry_Put_Then_Get(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := &stubSession{userID: 1}

	// Given an empty registry
	req.Zero(registry.Len())

	// When a session is registered
	prev, evicted := registry.Put(1, session)

	// Then nothing was displaced and the session is retrievable
	req.False(evicted)
	req.Nil(prev)
	got, ok := registry.Get(1)
	req.True(ok)
	req.Same(session, got)
	req.Equal(1, registry.Len())
}

func TestRegistry_Put_Reconnect_Evicts_Prior_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := &stubSession{userID: 1}
	second := &stubSession{userID: 1}

	// Given a connected user
	registry.Put(1, first)

	// When the same user connects again
	prev, evicted := registry.Put(1, second)

	// Then the prior session is returned for the caller to close
	// and the newer one owns the key (last connection wins)
	req.True(evicted)
	req.Same(first, prev)
	got, ok := registry.Get(1)
	req.True(ok)
	req.Same(second, got)
	req.Equal(1, registry.Len())
}

func TestRegistry_Put_Same_Session_Is_Not_An_Eviction(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session := &stubSession{userID: 1}
	registry.Put(1, session)

	// When the exact same handle is registered again
	_, evicted := registry.Put(1, session)

	// Then the caller must not close it as displaced
	req.False(evicted)
	got, ok := registry.Get(1)
	req.True(ok)
	req.Same(session, got)
}

func TestRegistry_Remove_Is_Identity_Conditional(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	stale := &stubSession{userID: 1}
	fresh := &stubSession{userID: 1}

	// Given a user who reconnected while the old session's cleanup
	// was still pending
	registry.Put(1, stale)
	registry.Put(1, fresh)

	// When the stale disconnect handler fires
	removed := registry.Remove(1, stale)

	// Then the newer session is never evicted by the late cleanup
	req.False(removed)
	got, ok := registry.Get(1)
	req.True(ok)
	req.Same(fresh, got)

	// And removing the current session works
	req.True(registry.Remove(1, fresh))
	req.Zero(registry.Len())
}

func TestRegistry_Remove_Absent_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.False(registry.Remove(42, &stubSession{userID: 42}))
}

func TestRegistry_Snapshot_Is_Detached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	a := &stubSession{userID: 1}
	b := &stubSession{userID: 2}
	registry.Put(1, a)
	registry.Put(2, b)

	// When a snapshot is taken and the registry mutates afterwards
	snapshot := registry.Snapshot()
	registry.Remove(2, b)

	// Then the snapshot still holds both sessions
	req.Len(snapshot, 2)
	req.Contains(snapshot, contract.Outbound(a))
	req.Contains(snapshot, contract.Outbound(b))
	req.Equal(1, registry.Len())
}

func TestRegistry_Concurrent_Access(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When many connection workers hammer the registry at once
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			s := &stubSession{userID: userID}
			registry.Put(userID, s)
			registry.Get(userID)
			registry.Snapshot()
			registry.Remove(userID, s)
		}(i)
	}
	wg.Wait()

	// Then every worker cleaned up its own entry
	req.Zero(registry.Len())
}
