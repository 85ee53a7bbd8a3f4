package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionBindStream(t *testing.T) {
	s := NewSession("c1", "u1", "alice", "viewer")
	assert.Empty(t, s.StreamID())

	require.NoError(t, s.BindStream("s1"))
	assert.Equal(t, "s1", s.StreamID())

	// rebinding the same stream is fine; a different one is not
	require.NoError(t, s.BindStream("s1"))
	err := s.BindStream("s2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "s1", s.StreamID())

	s.UnbindStream()
	assert.Empty(t, s.StreamID())
	require.NoError(t, s.BindStream("s2"))
	assert.Equal(t, "s2", s.StreamID())
}
