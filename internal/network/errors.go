// internal/network/errors.go
//
// Error values returned by the Manager.
//
// Context
// -------
// Front ends (REST, CLI) translate failures into status codes and exit
// messages.  They do so by kind, not by individual sentinel, so KindOf
// folds every sentinel (including the provision and address packages'
// own) into the five kinds a caller must tell apart.
//
// Notes
// -----
//   - Sentinels are wrapped with fmt.Errorf("...: %w", ...); always test
//     with errors.Is.
//   - Oxford commas, two spaces after periods.
package network

import (
	"errors"
	"fmt"

	"github.com/stuttter/wp-multi-network-sub000/internal/address"
	"github.com/stuttter/wp-multi-network-sub000/internal/provision"
)

var (
	ErrNetworkNotFound = errors.New("network not found")
	ErrSiteNotFound    = errors.New("site not found")

	ErrNetworkExists = errors.New("a network already exists at that domain and path")
	ErrAddressTaken  = errors.New("another site already uses that domain and path")

	ErrNetworkNotEmpty = errors.New("network still has sites")
	ErrUserNotFound    = errors.New("user not found")
	ErrMainNetwork     = errors.New("the main network cannot be deleted")

	ErrPersistence = errors.New("persistence failure")
)

// Kind classifies an error for front ends.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindPrecondition
	KindPersistence
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPrecondition:
		return "precondition_failed"
	case KindPersistence:
		return "persistence_failure"
	case KindValidation:
		return "validation_failure"
	}
	return "unknown"
}

// KindOf returns the kind of err.  nil is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNetworkNotFound), errors.Is(err, ErrSiteNotFound):
		return KindNotFound
	case errors.Is(err, ErrNetworkExists), errors.Is(err, ErrAddressTaken),
		errors.Is(err, provision.ErrSiteExists):
		return KindConflict
	case errors.Is(err, ErrNetworkNotEmpty), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrMainNetwork):
		return KindPrecondition
	case errors.Is(err, address.ErrInvalid):
		return KindValidation
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	}
	return KindUnknown
}

// persist marks err as a store failure during op.
func persist(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
