package ichor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroup_ServeReturnsAfterQuittingAllKernels(t *testing.T) {
	k1 := NewKernel("k1", DefaultConfig())
	k2 := NewKernel("k2", DefaultConfig())
	g := NewGroup(k1, k2)

	serveDone := make(chan error, 1)
	go func() { serveDone <- g.Serve(context.Background()) }()

	require.NoError(t, g.Quit())

	select {
	case err := <-serveDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("group did not drain after Quit")
	}
}

func TestGroup_QuitReachesEveryKernel(t *testing.T) {
	k1 := NewKernel("k1", DefaultConfig())
	k2 := NewKernel("k2", DefaultConfig())
	g := NewGroup(k1, k2)

	// Neither kernel is serving, so the QuitEvent the group pushed into
	// each one is still queued afterwards. A second, direct Quit per
	// kernel is accepted as well.
	require.NoError(t, g.Quit())
	require.Equal(t, 1, k1.q.Size())
	require.Equal(t, 1, k2.q.Size())
	require.NoError(t, k1.Quit())
	require.NoError(t, k2.Quit())
}
