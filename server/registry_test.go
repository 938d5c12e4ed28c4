package server

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdleSession(srv *Server) *ClientSession {
	return newClientSession(srv, newMockConnection())
}

func TestClientRegistryAddRemove(t *testing.T) {
	srv, _, _ := newTestServer()

	session := newIdleSession(srv)
	srv.Clients.Add(session)
	assert.Equal(t, 1, srv.Clients.Count())

	srv.Clients.Remove(session.ID())
	assert.Equal(t, 0, srv.Clients.Count())

	// Removing an unknown id must be a no-op
	srv.Clients.Remove("nope")
	assert.Equal(t, 0, srv.Clients.Count())
}

// With nobody waiting, the caller itself becomes the waiting session.
func TestClaimOpponentNobodyWaiting(t *testing.T) {
	srv, _, _ := newTestServer()

	caller := newIdleSession(srv)
	srv.Clients.Add(caller)

	assert.Nil(t, srv.Clients.ClaimOpponent(caller))
	assert.True(t, caller.lookingForMatch, "Caller must be left waiting when no opponent exists")
}

// A waiting session is claimed exactly once; both flags are cleared inside
// the claim.
func TestClaimOpponentClaimsWaiter(t *testing.T) {
	srv, _, _ := newTestServer()

	first := newIdleSession(srv)
	second := newIdleSession(srv)
	srv.Clients.Add(first)
	srv.Clients.Add(second)

	require.Nil(t, srv.Clients.ClaimOpponent(first))

	opponent := srv.Clients.ClaimOpponent(second)
	require.NotNil(t, opponent)
	assert.Equal(t, first.ID(), opponent.ID())
	assert.False(t, first.lookingForMatch)
	assert.False(t, second.lookingForMatch)

	// The pool is empty now; a third call starts waiting again
	third := newIdleSession(srv)
	srv.Clients.Add(third)
	assert.Nil(t, srv.Clients.ClaimOpponent(third))
}

// A caller never claims itself even while flagged as waiting.
func TestClaimOpponentNeverSelf(t *testing.T) {
	srv, _, _ := newTestServer()

	caller := newIdleSession(srv)
	srv.Clients.Add(caller)

	require.Nil(t, srv.Clients.ClaimOpponent(caller))
	assert.Nil(t, srv.Clients.ClaimOpponent(caller), "A waiting caller must not be matched with itself")
}

// A flagged session that already holds a room is stale pool state and must
// never be handed out as an opponent.
func TestClaimOpponentSkipsRoomMembers(t *testing.T) {
	srv, _, _ := newTestServer()

	stale := newIdleSession(srv)
	caller := newIdleSession(srv)
	srv.Clients.Add(stale)
	srv.Clients.Add(caller)

	require.Nil(t, srv.Clients.ClaimOpponent(stale))
	room := srv.Rooms.NewRoom(DuoCapacity)
	require.NoError(t, room.AddClient(stale))

	assert.Nil(t, srv.Clients.ClaimOpponent(caller), "A room member must not be claimable")
	assert.True(t, caller.lookingForMatch, "The caller waits instead")
	assert.Equal(t, 1, room.MemberCount())
}

// The primary concurrency hazard: N sessions race into matchmaking, and
// every waiting session must be claimed by exactly one opponent.
func TestClaimOpponentConcurrent(t *testing.T) {
	srv, _, _ := newTestServer()

	const players = 100
	sessions := make([]*ClientSession, players)
	for i := range sessions {
		sessions[i] = newIdleSession(srv)
		srv.Clients.Add(sessions[i])
	}

	var mutex sync.Mutex
	claims := make(map[string]int)

	wg := new(sync.WaitGroup)
	for _, session := range sessions {
		wg.Add(1)
		go func(session *ClientSession) {
			defer wg.Done()
			if opponent := srv.Clients.ClaimOpponent(session); opponent != nil {
				mutex.Lock()
				claims[session.ID()]++
				claims[opponent.ID()]++
				mutex.Unlock()
			}
		}(session)
	}
	wg.Wait()

	for id, count := range claims {
		assert.Equal(t, 1, count, "Session %s was paired %d times", id, count)
	}

	// Pairs involve two sessions each; with an even player count at most
	// everyone is paired, and whoever isn't paired must still be waiting.
	paired := len(claims)
	waiting := 0
	for _, session := range sessions {
		if session.lookingForMatch {
			waiting++
		}
	}
	assert.Equal(t, players, paired+waiting, "Every session is either paired exactly once or still waiting")
	assert.Zero(t, paired%2, "Paired sessions must come in twos")
}

// Removing a waiting session must take it out of the pool with it.
func TestRemoveClearsWaitingFlag(t *testing.T) {
	srv, _, _ := newTestServer()

	waiter := newIdleSession(srv)
	other := newIdleSession(srv)
	srv.Clients.Add(waiter)
	srv.Clients.Add(other)

	require.Nil(t, srv.Clients.ClaimOpponent(waiter))
	srv.Clients.Remove(waiter.ID())

	assert.Nil(t, srv.Clients.ClaimOpponent(other), "A removed session must not be claimable")
}

func TestRoomRegistryLifecycle(t *testing.T) {
	srv, _, _ := newTestServer()

	room := srv.Rooms.NewRoom(DuoCapacity)
	require.NotNil(t, room)
	assert.NotEmpty(t, room.ID())
	assert.Equal(t, 1, srv.Rooms.Count())

	assert.Same(t, room, srv.Rooms.FindRoomByID(room.ID()))
	assert.Nil(t, srv.Rooms.FindRoomByID("missing"), "Unknown room ids must resolve to nil, not an error")

	srv.Rooms.Retire(room.ID())
	assert.Nil(t, srv.Rooms.FindRoomByID(room.ID()))
	assert.Equal(t, 0, srv.Rooms.Count())
}

func TestRoomRegistryUniqueIDs(t *testing.T) {
	srv, _, _ := newTestServer()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room := srv.Rooms.NewRoom(DuoCapacity)
		assert.False(t, seen[room.ID()], "Room ids must be unique")
		seen[room.ID()] = true
	}
}
