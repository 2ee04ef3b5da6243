package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifierPoolReusesReleasedSlots(t *testing.T) {
	p := NewIdentifierPool(4)

	a := p.Acquire("a")
	b := p.Acquire("b")
	c := p.Acquire("c")
	assert.Equal(t, []uint32{0, 1, 2}, []uint32{a, b, c})

	require.NoError(t, p.Release(b))
	_, ok := p.Owner(b)
	assert.False(t, ok)

	d := p.Acquire("d")
	assert.Equal(t, b, d)
	owner, ok := p.Owner(d)
	require.True(t, ok)
	assert.Equal(t, "d", owner)
}

func TestIdentifierPoolReleaseErrors(t *testing.T) {
	p := NewIdentifierPool(0)
	assert.Error(t, p.Release(0))

	id := p.Acquire(struct{}{})
	require.NoError(t, p.Release(id))
	assert.Error(t, p.Release(id))
}
