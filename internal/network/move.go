// internal/network/move.go
//
// Moving a site between networks.
//
// Notes
// -----
//   - Main sites stay put; moving one reports a no-op, not an error.
//   - blog_count of both networks is recounted inside the transaction.
package network

import (
	"context"
	"errors"
	"strconv"

	"github.com/stuttter/wp-multi-network-sub000/internal/address"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

// MoveResult reports the outcome of MoveSite.  Moved is false for the two
// no-op cases: the site is its network's main site, or it is already on
// the destination.
type MoveResult struct {
	NetworkID int64 `json:"network_id"`
	Moved     bool  `json:"moved"`
}

// MoveSite re-parents site siteID onto network dest.
//
// Checks run in this order: the site exists, it is not its network's main
// site, it is not already on dest, dest exists (0 only when orphan rescue
// is enabled), and its relocated address is free.  The site's address
// follows address.Relocate from the origin network to dest; moving to
// network 0 keeps the address.
func (m *Manager) MoveSite(ctx context.Context, siteID, dest int64) (MoveResult, error) {
	res, err := m.moveSite(ctx, siteID, dest)
	metrics.Observe("move_site", err)
	log := logger.FromContext(ctx)
	switch {
	case err != nil:
		log.Errorw("move site failed", "op", "move_site", "site", siteID, "network", dest, "err", err)
	case res.Moved:
		log.Infow("site moved", "op", "move_site", "site", siteID, "network", dest)
	default:
		log.Debugw("site move skipped", "op", "move_site", "site", siteID, "network", dest)
	}
	return res, err
}

func (m *Manager) moveSite(ctx context.Context, siteID, dest int64) (MoveResult, error) {
	site, err := m.store.Site(ctx, siteID)
	if errors.Is(err, directory.ErrNotFound) {
		return MoveResult{}, ErrSiteNotFound
	}
	if err != nil {
		return MoveResult{}, persist("load site", err)
	}
	origin := site.NetworkID
	noop := MoveResult{NetworkID: origin}

	var from *directory.Network
	if origin != 0 {
		from, err = m.store.Network(ctx, origin)
		switch {
		case err == nil:
			mainID, err := m.store.MainSiteID(ctx, *from)
			if err != nil && !errors.Is(err, directory.ErrNotFound) {
				return MoveResult{}, persist("main site", err)
			}
			if mainID == site.ID {
				return noop, nil
			}
		case errors.Is(err, directory.ErrNotFound):
			from = nil
		default:
			return MoveResult{}, persist("load network", err)
		}
	}

	if dest == origin {
		return noop, nil
	}

	newAddr := site.Address()
	switch {
	case dest == 0:
		if !m.policy.RescueOrphanedSites {
			return MoveResult{}, ErrNetworkNotFound
		}
	default:
		to, err := m.store.Network(ctx, dest)
		if errors.Is(err, directory.ErrNotFound) {
			return MoveResult{}, ErrNetworkNotFound
		}
		if err != nil {
			return MoveResult{}, persist("load network", err)
		}
		if from != nil {
			newAddr = address.Relocate(site.Address(), from.Address(), to.Address())
		}
	}

	if newAddr != site.Address() {
		other, err := m.store.SiteByAddress(ctx, newAddr.Domain, newAddr.Path)
		switch {
		case err == nil && other.ID != site.ID:
			return MoveResult{}, ErrAddressTaken
		case err != nil && !errors.Is(err, directory.ErrNotFound):
			return MoveResult{}, persist("check address", err)
		}
	}

	err = m.store.Tx(ctx, func(tx *directory.Store) error {
		if err := tx.SetSiteNetwork(ctx, site.ID, dest); err != nil {
			return err
		}
		if err := rewriteSite(ctx, tx, *site, newAddr); err != nil {
			return err
		}
		for _, nid := range []int64{origin, dest} {
			if nid == 0 || (nid == origin && from == nil) {
				continue
			}
			if err := recount(ctx, tx, nid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MoveResult{}, persist("move site", err)
	}

	m.forget(ctx, []int64{origin, dest}, []int64{site.ID})
	m.bus.Emit(ctx, hooks.MoveSite, site.ID, origin, dest)
	return MoveResult{NetworkID: dest, Moved: true}, nil
}

// recount stores the live site count of networkID in its blog_count meta.
func recount(ctx context.Context, tx *directory.Store, networkID int64) error {
	n, err := tx.CountSites(ctx, networkID)
	if err != nil {
		return err
	}
	return tx.SetNetworkMeta(ctx, networkID, "blog_count", strconv.FormatInt(n, 10))
}
