// internal/network/create.go
//
// Network creation.
//
// Workflow
// --------
//  1. Normalise the address, load the owner, and check the sub-directory
//     slug against reserved names and existing logins.
//  2. Insert the network row, then provision its root site.
//  3. Write the network meta, and the root site's own upload paths unless
//     the main network serves files through ms_files_rewriting.
//  4. Copy options from a clone source, if one was named, by switching
//     the context stack to it and back.
//  5. Invalidate the cache and emit add_network.
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
	"github.com/stuttter/wp-multi-network-sub000/internal/provision"
	"github.com/stuttter/wp-multi-network-sub000/internal/scope"
	"github.com/stuttter/wp-multi-network-sub000/internal/users"
)

// CreateInput describes a new network.
type CreateInput struct {
	Domain         string   `json:"domain"           validate:"required,max=200"`
	Path           string   `json:"path"             validate:"omitempty,max=100"`
	SiteName       string   `json:"site_name"        validate:"max=200"`
	UserID         int64    `json:"user_id"          validate:"required,gt=0"`
	CloneNetwork   int64    `json:"clone_network"    validate:"gte=0"`
	OptionsToClone []string `json:"options_to_clone" validate:"dive,required,max=191"`
}

// Create adds a network with a root site and returns its id.
//
// When provisioning the root site fails, the network row has already been
// written and is left in place; the provisioning error is returned as is.
func (m *Manager) Create(ctx context.Context, in CreateInput) (int64, error) {
	id, err := m.create(ctx, in)
	metrics.Observe("create", err)
	log := logger.FromContext(ctx)
	if err != nil {
		log.Errorw("create network failed", "op", "create", "domain", in.Domain, "path", in.Path, "err", err)
		return 0, err
	}
	log.Infow("network created", "op", "create", "network", id, "domain", in.Domain, "path", in.Path)
	return id, nil
}

func (m *Manager) create(ctx context.Context, in CreateInput) (int64, error) {
	domain := address.NormalizeDomain(in.Domain)
	path := address.SanitizePath(in.Path)
	if err := address.ValidateDomain(domain); err != nil {
		return 0, err
	}
	in.Domain, in.Path = domain, path

	owner, err := m.users.ByID(ctx, in.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, persist("load owner", err)
	}

	if path != "/" {
		slug := address.LastSegment(path)
		if err := address.ValidateSlug(slug); err != nil {
			return 0, err
		}
		taken, err := m.users.LoginExists(ctx, slug)
		if err != nil {
			return 0, persist("check username", err)
		}
		if taken {
			return 0, address.Invalid(slug, "name matches an existing username")
		}
	}

	if _, err := m.store.NetworkByAddress(ctx, domain, path); err == nil {
		return 0, ErrNetworkExists
	} else if !errors.Is(err, directory.ErrNotFound) {
		return 0, persist("check address", err)
	}

	id, err := m.store.InsertNetwork(ctx, domain, path)
	if err != nil {
		return 0, persist("insert network", err)
	}

	siteName := in.SiteName
	if siteName == "" {
		siteName = domain + path
	}
	siteID, err := m.prov.CreateSite(ctx, provision.SiteRequest{
		NetworkID:  id,
		Domain:     domain,
		Path:       path,
		Title:      siteName,
		UserID:     owner.ID,
		AdminEmail: owner.Email,
		Scheme:     m.policy.Scheme,
	})
	if err != nil {
		return 0, err
	}

	siteURL := address.SiteURL(m.policy.Scheme, address.Address{Domain: domain, Path: path})
	meta := [][2]string{
		{"site_name", siteName},
		{"site_admins", directory.EncodeSiteAdmins([]string{owner.Login})},
		{"admin_email", owner.Email},
		{"main_site", strconv.FormatInt(siteID, 10)},
		{"blog_count", "1"},
		{"siteurl", siteURL + "/"},
	}
	for _, kv := range meta {
		if err := m.store.SetNetworkMeta(ctx, id, kv[0], kv[1]); err != nil {
			return 0, persist("set "+kv[0], err)
		}
	}

	if err := m.separateUploads(ctx, siteID, siteURL); err != nil {
		return 0, err
	}

	if in.CloneNetwork > 0 {
		if err := m.cloneOptions(ctx, in.CloneNetwork, id, in.OptionsToClone); err != nil {
			return 0, err
		}
	}

	m.forget(ctx, []int64{id}, []int64{siteID})
	m.bus.Emit(ctx, hooks.AddNetwork, id, in)
	return id, nil
}

// separateUploads points the root site's uploads at its own directory
// unless the main network serves files through ms_files_rewriting.
func (m *Manager) separateUploads(ctx context.Context, siteID int64, siteURL string) error {
	mainID, err := m.MainNetworkID(ctx)
	if err != nil {
		return err
	}
	rewriting, _, err := m.store.NetworkMeta(ctx, mainID, "ms_files_rewriting")
	if err != nil {
		return persist("read ms_files_rewriting", err)
	}
	if rewriting != "" && rewriting != "0" {
		return nil
	}

	uploads := provision.UploadPath(siteID)
	if err := m.store.SetSiteOption(ctx, siteID, "upload_path", uploads); err != nil {
		return persist("set upload_path", err)
	}
	if err := m.store.SetSiteOption(ctx, siteID, "upload_url_path", siteURL+"/"+uploads); err != nil {
		return persist("set upload_url_path", err)
	}
	return nil
}

// cloneOptions copies names from network src into network dst.  A source
// that does not exist is skipped; options it does not have are skipped.
func (m *Manager) cloneOptions(ctx context.Context, src, dst int64, names []string) error {
	if len(names) == 0 {
		names = m.policy.OptionsToClone
	}
	if len(names) == 0 {
		names = DefaultOptionsToClone
	}

	stack := m.Stack(ctx)
	snapshot := make(map[string]string, len(names))
	err := stack.Within(ctx, src, func(ctx context.Context) error {
		for _, name := range names {
			v, ok, err := stack.Option(ctx, name)
			if err != nil {
				return persist("read "+name, err)
			}
			if ok {
				snapshot[name] = v
			}
		}
		return nil
	})
	if errors.Is(err, directory.ErrNotFound) {
		logger.FromContext(ctx).Warnw("clone source missing, nothing copied", "op", "create", "network", dst, "source", src)
		return nil
	}
	if err != nil {
		return err
	}

	return stack.Within(ctx, dst, func(ctx context.Context) error {
		for _, name := range names {
			v, ok := snapshot[name]
			if !ok {
				continue
			}
			if err := m.writeClonedOption(ctx, stack, dst, name, v); err != nil {
				return persist("write "+name, err)
			}
		}
		return nil
	})
}

// writeClonedOption stores one cloned value on network dst, the current
// network of stack.  ms_files_rewriting skips the cached option layer:
// it goes straight to the Store and dst is dropped from the Cache.
func (m *Manager) writeClonedOption(ctx context.Context, stack *scope.Stack, dst int64, name, value string) error {
	if name != "ms_files_rewriting" {
		return stack.SetOption(ctx, name, value)
	}
	if err := m.store.SetNetworkMeta(ctx, dst, name, value); err != nil {
		return err
	}
	m.cache.ForgetNetwork(ctx, dst)
	return nil
}
