package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesEntry(t *testing.T) {
	r := NewRegistry()
	c := NewConn(42, 4)

	r.Register(42, c)

	conns := r.ConnectionsFor(42)
	require.Len(t, conns, 1)
	assert.Same(t, c, conns[0])
	assert.Equal(t, 1, r.Users())
	assert.Equal(t, 1, r.Len())
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := NewConn(42, 4)

	r.Register(42, c)
	r.Register(42, c)

	assert.Len(t, r.ConnectionsFor(42), 1)
	assert.Equal(t, 1, r.Len())
}

func TestUnregisterRemovesEmptyEntry(t *testing.T) {
	r := NewRegistry()
	first := NewConn(7, 4)
	second := NewConn(7, 4)

	r.Register(7, first)
	r.Register(7, second)
	require.Equal(t, 2, r.Len())

	r.Unregister(7, first)
	assert.Len(t, r.ConnectionsFor(7), 1)
	assert.Equal(t, 1, r.Users())

	// The user key must disappear with the last handle, never linger as an
	// empty set.
	r.Unregister(7, second)
	assert.Empty(t, r.ConnectionsFor(7))
	assert.Equal(t, 0, r.Users())
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	registered := NewConn(1, 4)
	stranger := NewConn(1, 4)

	r.Register(1, registered)

	assert.NotPanics(t, func() {
		r.Unregister(1, stranger)
		r.Unregister(999, stranger)
		r.Unregister(1, nil)
	})
	assert.Len(t, r.ConnectionsFor(1), 1)
}

func TestConnectionsForUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.ConnectionsFor(999))
}

func TestConnectionsForReturnsSnapshot(t *testing.T) {
	r := NewRegistry()
	first := NewConn(3, 4)
	second := NewConn(3, 4)
	r.Register(3, first)
	r.Register(3, second)

	snapshot := r.ConnectionsFor(3)
	require.Len(t, snapshot, 2)

	// Mutating the registry must not disturb an already-taken snapshot.
	r.Unregister(3, first)
	r.Unregister(3, second)
	assert.Len(t, snapshot, 2)
}

func TestTrySend(t *testing.T) {
	c := NewConn(5, 1)

	assert.True(t, c.TrySend([]byte("a")))
	// Queue of one is now full.
	assert.False(t, c.TrySend([]byte("b")))

	<-c.SendQueue
	assert.True(t, c.TrySend([]byte("c")))

	c.Close()
	assert.True(t, c.Closed())
	assert.False(t, c.TrySend([]byte("d")))
}

func TestConnIDsAreUnique(t *testing.T) {
	a := NewConn(1, 1)
	b := NewConn(1, 1)
	assert.NotEqual(t, a.ID, b.ID)
}
