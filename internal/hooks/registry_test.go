package hooks

import (
	"context"
	"testing"
)

func TestEmitOrderAndArgs(t *testing.T) {
	b := New()
	var got []string

	b.On(MoveSite, func(_ context.Context, args ...any) {
		if len(args) != 3 || args[0].(int64) != 5 {
			t.Fatalf("unexpected args %#v", args)
		}
		got = append(got, "first")
	})
	b.On(MoveSite, func(context.Context, ...any) { got = append(got, "second") })

	b.Emit(context.Background(), MoveSite, int64(5), int64(1), int64(2))

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("subscribers ran as %v", got)
	}
	if b.Count(MoveSite) != 2 || b.Count(AddNetwork) != 0 {
		t.Fatalf("unexpected counts")
	}
}

func TestEmitRecoversPanics(t *testing.T) {
	b := New()
	ran := false
	b.On(DeleteNetwork, func(context.Context, ...any) { panic("boom") })
	b.On(DeleteNetwork, func(context.Context, ...any) { ran = true })

	b.Emit(context.Background(), DeleteNetwork, nil)

	if !ran {
		t.Fatal("subscriber after the panicking one did not run")
	}
}

func TestNilBus(t *testing.T) {
	var b *Bus
	b.Emit(context.Background(), AddNetwork, int64(1)) // must not panic
}
