// internal/scope/stack.go
//
// Context switch stack.
//
// Context
// -------
// Network options are read and written against "the current network".
// Code that needs another network's options (cloning settings into a new
// network, checking the main network's admins) switches to it, does its
// work, and restores.  Stack records every previously current network so
// switches nest to any depth and each Restore undoes exactly one Switch.
//
// Workflow
// --------
//  1. A request or CLI command builds one Stack with its starting network
//     and attaches it to the context with WithStack.
//  2. Callers prefer Within(ctx, id, fn), which restores on every exit
//     path, including panics.  Switch and Restore stay available for code
//     that must interleave.
//  3. Every Switch and Restore fires hooks.SwitchNetwork(newID, prevID),
//     even when the network does not change.
//
// Notes
// -----
//   - A Stack belongs to one goroutine.  It has no lock; do not share it.
//   - Oxford commas, two spaces after periods.
package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

// Source loads networks with their derived fields populated.
type Source interface {
	Network(ctx context.Context, id int64) (*directory.Network, error)
}

// Options reads and writes per-network settings.
type Options interface {
	NetworkMeta(ctx context.Context, networkID int64, key string) (string, bool, error)
	SetNetworkMeta(ctx context.Context, networkID int64, key, value string) error
}

// Stack is the current network plus the networks it replaced.
type Stack struct {
	src     Source
	opts    Options
	bus     *hooks.Bus
	current directory.Network
	stack   []directory.Network
}

// New returns a Stack whose current network is start.
func New(src Source, opts Options, bus *hooks.Bus, start directory.Network) *Stack {
	return &Stack{src: src, opts: opts, bus: bus, current: start}
}

// Current returns a copy of the current network.
func (s *Stack) Current() directory.Network { return s.current }

// Depth reports how many switches are active.
func (s *Stack) Depth() int { return len(s.stack) }

// Switched reports whether any switch is active.
func (s *Stack) Switched() bool { return len(s.stack) > 0 }

// Switch makes network id current.  id 0 means the current network.
//
// With validate set, a network that does not exist is an error and the
// stack is left untouched.  Without it, an unknown id becomes a bare
// Network{ID: id} so option reads against it simply find nothing.
func (s *Stack) Switch(ctx context.Context, id int64, validate bool) error {
	if id == 0 {
		id = s.current.ID
	}

	next, err := s.src.Network(ctx, id)
	if err != nil {
		if validate || !errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("scope: switch to network %d: %w", id, err)
		}
		next = &directory.Network{ID: id}
	}

	prev := s.current.ID
	s.stack = append(s.stack, s.current)
	s.current = *next
	metrics.SwitchDepth.Observe(float64(len(s.stack)))

	s.bus.Emit(ctx, hooks.SwitchNetwork, s.current.ID, prev)
	return nil
}

// Restore undoes the most recent Switch.  It returns false when no switch
// is active.
func (s *Stack) Restore(ctx context.Context) bool {
	if len(s.stack) == 0 {
		return false
	}
	last := len(s.stack) - 1
	popped := s.stack[last]
	s.stack = s.stack[:last]

	prev := s.current.ID
	if popped.ID != s.current.ID {
		s.current = popped
	}
	s.bus.Emit(ctx, hooks.SwitchNetwork, popped.ID, prev)
	return true
}

// Within switches to network id (validated), runs fn, and restores.
func (s *Stack) Within(ctx context.Context, id int64, fn func(ctx context.Context) error) error {
	if err := s.Switch(ctx, id, true); err != nil {
		return err
	}
	defer s.Restore(ctx)
	return fn(ctx)
}

// Option reads key from the current network.
func (s *Stack) Option(ctx context.Context, key string) (string, bool, error) {
	return s.opts.NetworkMeta(ctx, s.current.ID, key)
}

// SetOption writes key on the current network.
func (s *Stack) SetOption(ctx context.Context, key, value string) error {
	return s.opts.SetNetworkMeta(ctx, s.current.ID, key, value)
}
