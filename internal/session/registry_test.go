package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()

	s1 := New(Options{})
	s2 := New(Options{})
	s1.StartTime = time.Now().Add(-time.Minute)

	r.Register(s2)
	r.Register(s1)

	active := r.ListActive()
	require.Len(t, active, 2)
	assert.Equal(t, s1.ID, active[0].ID, "expected oldest first")
	assert.Equal(t, s2.ID, active[1].ID)
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()

	s1 := New(Options{})
	r.Register(s1)
	r.Unregister(s1.ID)

	assert.Empty(t, r.ListActive())
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	s1 := New(Options{})
	r.Register(s1)

	got := r.Get(s1.ID)
	require.NotNil(t, got)
	assert.Equal(t, s1.ID, got.ID)

	assert.Nil(t, r.Get(New(Options{}).ID), "expected nil for unknown session")
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	s1, s2 := New(Options{}), New(Options{})
	r.Register(s1)
	r.Register(s2)

	require.NoError(t, r.CloseAll())

	assert.Empty(t, r.ListActive())
	assert.Equal(t, StateClosed, s1.State())
	assert.Equal(t, StateClosed, s2.State())
}
