package decoder

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, retain int) (*Pool, *FakeFactory) {
	t.Helper()
	l := newLoop(t)
	f := &FakeFactory{}
	alloc := func() (*Session, error) {
		return NewSession(l, f.New, &recorder{}, zerolog.Nop())
	}
	return NewPool(retain, alloc, zerolog.Nop()), f
}

func TestPool_GetAllocatesWhenEmpty(t *testing.T) {
	p, f := newTestPool(t, 0)
	assert.Equal(t, DefaultRetain, p.Retain())

	s, err := p.Get()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Len(t, f.Engines(), 1)
	assert.Equal(t, 0, p.Len())
}

func TestPool_GetIsFIFO(t *testing.T) {
	p, _ := newTestPool(t, 3)
	a, err := p.Get()
	require.NoError(t, err)
	b, err := p.Get()
	require.NoError(t, err)

	p.Put(a)
	p.Put(b)
	assert.True(t, p.Contains(a))

	got, err := p.Get()
	require.NoError(t, err)
	assert.Same(t, a, got)
	got, err = p.Get()
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestPool_PutTwicePanics(t *testing.T) {
	p, _ := newTestPool(t, 3)
	s, err := p.Get()
	require.NoError(t, err)

	p.Put(s)
	requireAssertion(t, func() { p.Put(s) })
}

func TestPool_Remove(t *testing.T) {
	p, _ := newTestPool(t, 3)
	s, err := p.Get()
	require.NoError(t, err)

	assert.False(t, p.Remove(s))
	p.Put(s)
	assert.True(t, p.Remove(s))
	assert.Equal(t, 0, p.Len())
}

func TestPool_PruneDestroysOldest(t *testing.T) {
	p, f := newTestPool(t, 2)
	var sessions []*Session
	for range 4 {
		s, err := p.Get()
		require.NoError(t, err)
		sessions = append(sessions, s)
	}
	for _, s := range sessions {
		p.Put(s)
	}

	p.Prune()
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, StateEnd, sessions[0].State())
	assert.Equal(t, StateEnd, sessions[1].State())
	assert.True(t, p.Contains(sessions[2]))
	assert.True(t, p.Contains(sessions[3]))

	engines := f.Engines()
	assert.True(t, engines[0].Released())
	assert.False(t, engines[2].Released())
}

func TestPool_DestroyAll(t *testing.T) {
	p, f := newTestPool(t, 3)
	s, err := p.Get()
	require.NoError(t, err)
	p.Put(s)

	p.DestroyAll()
	assert.Equal(t, 0, p.Len())
	assert.True(t, f.Engines()[0].Released())
}
