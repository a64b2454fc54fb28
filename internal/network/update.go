// internal/network/update.go
//
// Network address changes.
//
// Context
// -------
// A network's sites hang off its domain and path, so changing the address
// re-addresses every site (address.Relocate) and rewrites the URL options
// that embed the old address.  All checks run before the transaction;
// the writes share one.
package network

import (
	"context"
	"errors"

	"github.com/stuttter/wp-multi-network-sub000/internal/address"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

// Update moves network id to domain+path.  Every site of the network is
// re-addressed with address.Relocate and its URL options rewritten, all
// in one transaction.
func (m *Manager) Update(ctx context.Context, id int64, domain, path string) error {
	err := m.update(ctx, id, domain, path)
	metrics.Observe("update", err)
	log := logger.FromContext(ctx)
	if err != nil {
		log.Errorw("update network failed", "op", "update", "network", id, "err", err)
		return err
	}
	log.Infow("network updated", "op", "update", "network", id, "domain", domain, "path", path)
	return nil
}

func (m *Manager) update(ctx context.Context, id int64, domain, path string) error {
	n, err := m.store.Network(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return ErrNetworkNotFound
	}
	if err != nil {
		return persist("load network", err)
	}

	domain = address.NormalizeDomain(domain)
	path = address.SanitizePath(path)
	if err := address.ValidateDomain(domain); err != nil {
		return err
	}
	from := n.Address()
	to := address.Address{Domain: domain, Path: path}
	if from == to {
		return nil
	}

	if err := m.checkAddressFree(ctx, *n, to); err != nil {
		return err
	}
	if err := m.checkSitesFree(ctx, id, from, to); err != nil {
		return err
	}

	var touched []int64
	err = m.store.Tx(ctx, func(tx *directory.Store) error {
		if err := tx.UpdateNetworkAddress(ctx, id, domain, path); err != nil {
			return err
		}
		sites, err := tx.SitesByNetwork(ctx, id)
		if err != nil {
			return err
		}
		for _, site := range sites {
			dest := address.Relocate(site.Address(), from, to)
			if err := rewriteSite(ctx, tx, site, dest); err != nil {
				return err
			}
			touched = append(touched, site.ID)
		}

		if v, ok, err := tx.NetworkMeta(ctx, id, "siteurl"); err != nil {
			return err
		} else if ok {
			if nv, changed := address.RewriteURL(v, from, to); changed {
				return tx.SetNetworkMeta(ctx, id, "siteurl", nv)
			}
		}
		return nil
	})
	if err != nil {
		return persist("update network", err)
	}

	m.forget(ctx, []int64{id}, touched)
	m.bus.Emit(ctx, hooks.UpdateNetwork, id, n.Domain, n.Path)
	return nil
}

// checkAddressFree refuses an address held by another network, or by a
// site other than n's own main site.
func (m *Manager) checkAddressFree(ctx context.Context, n directory.Network, to address.Address) error {
	other, err := m.store.NetworkByAddress(ctx, to.Domain, to.Path)
	switch {
	case err == nil && other.ID != n.ID:
		return ErrNetworkExists
	case err != nil && !errors.Is(err, directory.ErrNotFound):
		return persist("check address", err)
	}

	site, err := m.store.SiteByAddress(ctx, to.Domain, to.Path)
	if errors.Is(err, directory.ErrNotFound) {
		return nil
	}
	if err != nil {
		return persist("check address", err)
	}
	mainID, err := m.store.MainSiteID(ctx, n)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		return persist("main site", err)
	}
	if site.ID == mainID {
		return nil
	}
	return ErrAddressTaken
}

// checkSitesFree refuses an update that would relocate a site of network
// id onto an address held by a site of another network, or that would
// leave two of its own sites on one address.
func (m *Manager) checkSitesFree(ctx context.Context, id int64, from, to address.Address) error {
	sites, err := m.store.SitesByNetwork(ctx, id)
	if err != nil {
		return persist("list sites", err)
	}
	own := make(map[int64]bool, len(sites))
	for _, site := range sites {
		own[site.ID] = true
	}

	landed := make(map[address.Address]int64, len(sites))
	for _, site := range sites {
		dest := address.Relocate(site.Address(), from, to)
		if prev, dup := landed[dest]; dup && prev != site.ID {
			return ErrAddressTaken
		}
		landed[dest] = site.ID
		if dest == site.Address() {
			continue
		}
		other, err := m.store.SiteByAddress(ctx, dest.Domain, dest.Path)
		switch {
		case err == nil && !own[other.ID]:
			return ErrAddressTaken
		case err != nil && !errors.Is(err, directory.ErrNotFound):
			return persist("check address", err)
		}
	}
	return nil
}
