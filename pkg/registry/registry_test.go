package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle struct {
	id string
}

func (h *stubHandle) ID() string { return h.id }

func (h *stubHandle) Send(context.Context, string) error { return nil }

func ids(handles []Handle) []string {
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.ID())
	}
	return out
}

func TestRegistryAddAndSnapshot(t *testing.T) {
	r := New()
	r.Add(&stubHandle{id: "a"})
	r.Add(&stubHandle{id: "b"})

	assert.Equal(t, 2, r.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, ids(r.Snapshot()))

	h, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", h.ID())
}

func TestRegistryAddOverwritesSameID(t *testing.T) {
	r := New()
	first := &stubHandle{id: "same"}
	second := &stubHandle{id: "same"}

	r.Add(first)
	r.Add(second)

	require.Equal(t, 1, r.Len())
	h, ok := r.Get("same")
	require.True(t, ok)
	assert.Same(t, second, h)
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := New()
	r.Add(&stubHandle{id: "a"})
	r.Add(&stubHandle{id: "b"})

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	assert.False(t, r.Remove("never-added"))

	assert.Equal(t, []string{"b"}, ids(r.Snapshot()))
}

func TestRegistrySnapshotIsDetached(t *testing.T) {
	r := New()
	r.Add(&stubHandle{id: "a"})

	snap := r.Snapshot()
	r.Add(&stubHandle{id: "b"})
	r.Remove("a")

	assert.Equal(t, []string{"a"}, ids(snap))
	assert.Equal(t, []string{"b"}, ids(r.Snapshot()))
}

func TestRegistrySnapshotExcludesRemovedHandle(t *testing.T) {
	r := New()
	for i := range 10 {
		r.Add(&stubHandle{id: fmt.Sprintf("h-%d", i)})
	}

	r.Remove("h-3")

	assert.NotContains(t, ids(r.Snapshot()), "h-3")
	assert.Len(t, r.Snapshot(), 9)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := New()
	const workers = 50

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.Add(&stubHandle{id: fmt.Sprintf("keep-%d", w)})
		}()
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("gone-%d", w)
			r.Add(&stubHandle{id: id})
			r.Remove(id)
			r.Remove(id)
		}()
		go func() {
			defer wg.Done()
			for _, h := range r.Snapshot() {
				_ = h.ID()
			}
			_ = r.Len()
		}()
	}
	wg.Wait()

	snap := ids(r.Snapshot())
	assert.Len(t, snap, workers)
	for w := range workers {
		assert.Contains(t, snap, fmt.Sprintf("keep-%d", w))
	}
}
