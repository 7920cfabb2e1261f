package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChannel struct{ name string }

func (f *fakeChannel) Enqueue(message []byte) bool { return true }

func TestRegistry_Lifecycle(t *testing.T) {
	req := require.New(t)
	r := New()
	ch := &fakeChannel{name: "a"}

	req.False(r.IsOnline("p1"))

	r.Register("p1", ch)
	req.True(r.IsOnline("p1"))
	resolved, ok := r.Resolve("p1")
	req.True(ok)
	req.Same(ch, resolved.(*fakeChannel))

	r.Unregister("p1", ch)
	req.False(r.IsOnline("p1"))
	_, ok = r.Resolve("p1")
	req.False(ok)
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	req := require.New(t)
	r := New()
	first := &fakeChannel{name: "first"}
	second := &fakeChannel{name: "second"}

	r.Register("p1", first)
	r.Register("p1", second)

	resolved, ok := r.Resolve("p1")
	req.True(ok)
	req.Same(second, resolved.(*fakeChannel))
}

func TestRegistry_StaleUnregisterIgnored(t *testing.T) {
	req := require.New(t)
	r := New()
	old := &fakeChannel{name: "old"}
	fresh := &fakeChannel{name: "fresh"}

	r.Register("p1", old)
	r.Register("p1", fresh)

	// Old connection's deferred cleanup fires after the reconnect.
	r.Unregister("p1", old)
	req.True(r.IsOnline("p1"))

	r.Unregister("p1", fresh)
	req.False(r.IsOnline("p1"))
}

func TestRegistry_UnregisterAbsentIsNoop(t *testing.T) {
	r := New()
	r.Unregister("ghost", nil)
	require.False(t, r.IsOnline("ghost"))
}
