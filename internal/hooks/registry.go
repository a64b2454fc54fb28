// internal/hooks/registry.go
//
// A super-light event bus: subscribers call On(event, fn) once at wiring
// time, and the CRUD core calls Emit(ctx, event, args...) after each
// mutation.  Subscribers run synchronously, in registration order, and
// their results are ignored.
//
// Subscriber signature:
//
//	func(ctx context.Context, args ...any)
//
// Positional arguments per event are listed next to the constants below.
// A panicking subscriber is recovered and logged so one broken listener
// cannot abort the operation that fired the event.
package hooks

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Lifecycle events.
const (
	SwitchNetwork     = "switch_network"      // (newID, prevID int64)
	AddNetwork        = "add_network"         // (id int64, input any)
	UpdateNetwork     = "update_network"      // (id int64, oldDomain, oldPath string)
	DeleteNetwork     = "delete_network"      // (network any)
	MoveSite          = "move_site"           // (siteID, oldNetworkID, newNetworkID int64)
	CleanNetworkCache = "clean_network_cache" // (id int64)
	CleanSiteCache    = "clean_site_cache"    // (id int64)
)

// Handler is what subscribers register.
type Handler func(ctx context.Context, args ...any)

// Bus holds subscribers per event name.  The zero value is ready to use.
type Bus struct {
	mu       sync.RWMutex
	registry map[string][]Handler
}

// New returns an empty Bus.
func New() *Bus { return &Bus{} }

// On appends h to the subscribers of event.
func (b *Bus) On(event string, h Handler) {
	b.mu.Lock()
	if b.registry == nil {
		b.registry = map[string][]Handler{}
	}
	b.registry[event] = append(b.registry[event], h)
	b.mu.Unlock()
}

// Emit calls every subscriber of event.  A nil Bus is a no-op.
func (b *Bus) Emit(ctx context.Context, event string, args ...any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := append([]Handler(nil), b.registry[event]...)
	b.mu.RUnlock()

	for _, h := range subs {
		call(ctx, event, h, args)
	}
}

// Count reports how many subscribers event has.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.registry[event])
}

func call(ctx context.Context, event string, h Handler, args []any) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorw("hook subscriber panicked", "event", event, "panic", r)
		}
	}()
	h(ctx, args...)
}
