// internal/network/delete.go
//
// Network deletion.  The main network is never deleted; a non-empty
// network needs allowSites.
package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/metrics"
)

// Delete removes network id.  A network that still has sites is refused
// unless allowSites is set; its sites are then parked in network 0 or
// deleted, per Policy.RescueOrphanedSites.  Sites already handled when a
// later one fails stay handled.
func (m *Manager) Delete(ctx context.Context, id int64, allowSites bool) error {
	err := m.delete(ctx, id, allowSites)
	metrics.Observe("delete", err)
	log := logger.FromContext(ctx)
	if err != nil {
		log.Errorw("delete network failed", "op", "delete", "network", id, "err", err)
		return err
	}
	log.Infow("network deleted", "op", "delete", "network", id, "allow_sites", allowSites)
	return nil
}

func (m *Manager) delete(ctx context.Context, id int64, allowSites bool) error {
	n, err := m.store.Network(ctx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return ErrNetworkNotFound
	}
	if err != nil {
		return persist("load network", err)
	}
	if err := directory.Populate(ctx, m.store, n); err != nil {
		return persist("load network", err)
	}

	mainID, err := m.MainNetworkID(ctx)
	if err != nil {
		return err
	}
	if id == mainID {
		return ErrMainNetwork
	}

	sites, err := m.store.SitesByNetwork(ctx, id)
	if err != nil {
		return persist("list sites", err)
	}
	if len(sites) > 0 && !allowSites {
		return fmt.Errorf("%w: %d site(s)", ErrNetworkNotEmpty, len(sites))
	}

	siteIDs := make([]int64, 0, len(sites))
	for _, site := range sites {
		if m.policy.RescueOrphanedSites {
			err = m.store.SetSiteNetwork(ctx, site.ID, 0)
		} else {
			err = m.prov.DeleteSite(ctx, site.ID)
		}
		if err != nil {
			m.forget(ctx, []int64{id}, siteIDs)
			return persist(fmt.Sprintf("release site %d", site.ID), err)
		}
		siteIDs = append(siteIDs, site.ID)
	}

	if err := m.store.DeleteNetwork(ctx, id); err != nil && !errors.Is(err, directory.ErrNotFound) {
		m.forget(ctx, []int64{id}, siteIDs)
		return persist("delete network", err)
	}

	m.forget(ctx, []int64{id}, siteIDs)
	m.bus.Emit(ctx, hooks.DeleteNetwork, *n)
	return nil
}
