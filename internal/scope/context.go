// context.go carries a Stack through context.Context so handlers, CLI
// commands, and the network manager share the one stack of a request.
package scope

import "context"

// stackKey is unexported to avoid context-key collisions.
type stackKey struct{}

// WithStack returns a new context carrying s.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

// FromContext returns the Stack attached to ctx, or nil.
func FromContext(ctx context.Context) *Stack {
	s, _ := ctx.Value(stackKey{}).(*Stack)
	return s
}
