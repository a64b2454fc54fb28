package scope

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
)

type fakeSource map[int64]directory.Network

func (f fakeSource) Network(_ context.Context, id int64) (*directory.Network, error) {
	n, ok := f[id]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &n, nil
}

type fakeOptions map[int64]map[string]string

func (f fakeOptions) NetworkMeta(_ context.Context, id int64, key string) (string, bool, error) {
	v, ok := f[id][key]
	return v, ok, nil
}

func (f fakeOptions) SetNetworkMeta(_ context.Context, id int64, key, value string) error {
	if f[id] == nil {
		f[id] = map[string]string{}
	}
	f[id][key] = value
	return nil
}

type event struct{ next, prev int64 }

func newStack(t *testing.T) (*Stack, *[]event) {
	t.Helper()
	src := fakeSource{
		1: {ID: 1, Domain: "main.test", Path: "/", MainSiteID: 1, SiteName: "Main"},
		2: {ID: 2, Domain: "two.test", Path: "/", MainSiteID: 5},
		3: {ID: 3, Domain: "three.test", Path: "/"},
	}
	bus := hooks.New()
	var events []event
	bus.On(hooks.SwitchNetwork, func(_ context.Context, args ...any) {
		events = append(events, event{args[0].(int64), args[1].(int64)})
	})
	return New(src, fakeOptions{}, bus, src[1]), &events
}

func TestSwitchRestoreNesting(t *testing.T) {
	ctx := context.Background()
	s, events := newStack(t)

	path := []int64{2, 3, 2, 1, 3}
	for i, id := range path {
		require.NoError(t, s.Switch(ctx, id, true))
		assert.Equal(t, id, s.Current().ID)
		assert.Equal(t, i+1, s.Depth())
	}
	assert.Equal(t, int64(5), s.stack[1].MainSiteID, "stack keeps populated networks")

	// Restores unwind in reverse order back to the start.
	want := []int64{1, 2, 3, 2, 1}
	for i, id := range want {
		require.True(t, s.Restore(ctx))
		assert.Equal(t, id, s.Current().ID, "restore %d", i)
	}
	assert.False(t, s.Switched())
	assert.False(t, s.Restore(ctx), "restore on empty stack")
	assert.Len(t, *events, 10)
}

func TestSwitchSameNetworkStillNotifies(t *testing.T) {
	ctx := context.Background()
	s, events := newStack(t)

	require.NoError(t, s.Switch(ctx, 0, false)) // 0 means current
	assert.Equal(t, int64(1), s.Current().ID)
	assert.Equal(t, 1, s.Depth())
	require.True(t, s.Restore(ctx))

	assert.Equal(t, []event{{1, 1}, {1, 1}}, *events)
	assert.Equal(t, "Main", s.Current().SiteName)
}

func TestSwitchValidateFailsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	s, events := newStack(t)

	err := s.Switch(ctx, 99, true)
	assert.True(t, errors.Is(err, directory.ErrNotFound))
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, int64(1), s.Current().ID)
	assert.Empty(t, *events)

	// Without validation an unknown id becomes a bare network.
	require.NoError(t, s.Switch(ctx, 99, false))
	assert.Equal(t, directory.Network{ID: 99}, s.Current())
}

func TestWithinRestoresOnErrorAndPanic(t *testing.T) {
	ctx := context.Background()
	s, _ := newStack(t)
	boom := errors.New("boom")

	err := s.Within(ctx, 2, func(context.Context) error {
		assert.Equal(t, int64(2), s.Current().ID)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), s.Current().ID)

	func() {
		defer func() { _ = recover() }()
		_ = s.Within(ctx, 3, func(context.Context) error { panic("inside") })
	}()
	assert.Equal(t, int64(1), s.Current().ID)
	assert.Equal(t, 0, s.Depth())
}

func TestOptionsFollowCurrentNetwork(t *testing.T) {
	ctx := context.Background()
	s, _ := newStack(t)

	require.NoError(t, s.SetOption(ctx, "site_name", "Main"))
	require.NoError(t, s.Within(ctx, 2, func(ctx context.Context) error {
		if _, ok, _ := s.Option(ctx, "site_name"); ok {
			t.Fatal("network 2 sees network 1's option")
		}
		return s.SetOption(ctx, "site_name", "Two")
	}))
	v, _, _ := s.Option(ctx, "site_name")
	assert.Equal(t, "Main", v)
}

func TestContextCarriesStack(t *testing.T) {
	s, _ := newStack(t)
	ctx := WithStack(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
