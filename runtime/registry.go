package runtime

import (
	"sync"

	"chat-relay/contract"
)

// Registry is the concurrent map from user id to the live session handle of
// that user. A user id maps to at most one session at any instant: a second
// connection from the same id displaces the first (last connection wins).
//
// Built on sync.Map so synchronization stays per-key: traffic on one user's
// entry never serializes connects, disconnects or lookups of another user.
type Registry struct {
	sessions sync.Map // user id -> contract.Outbound
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Put registers session under userID and returns the session it displaced,
// if any. Closing the displaced session is the caller's responsibility; the
// registry never touches sockets.
func (r *Registry) Put(userID int, session contract.Outbound) (contract.Outbound, bool) {
	prev, loaded := r.sessions.Swap(userID, session)
	if !loaded {
		return nil, false
	}
	displaced := prev.(contract.Outbound)
	return displaced, displaced != session
}

// Remove deletes the entry for userID only while session is still the
// registered value. A disconnect handler that lost the race against a
// reconnection therefore leaves the newer session in place.
func (r *Registry) Remove(userID int, session contract.Outbound) bool {
	return r.sessions.CompareAndDelete(userID, session)
}

func (r *Registry) Get(userID int) (contract.Outbound, bool) {
	value, ok := r.sessions.Load(userID)
	if !ok {
		return nil, false
	}
	return value.(contract.Outbound), true
}

// Snapshot returns the sessions registered at this instant. The slice is
// the caller's to keep; later registry mutations do not affect it.
func (r *Registry) Snapshot() []contract.Outbound {
	var out []contract.Outbound
	r.sessions.Range(func(_, value any) bool {
		out = append(out, value.(contract.Outbound))
		return true
	})
	return out
}

func (r *Registry) Len() int {
	count := 0
	r.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
