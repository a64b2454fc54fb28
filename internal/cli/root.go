// internal/cli/root.go
//
// Operator command line (`wpmn`).
//
// Context
// -------
// The CLI drives the same network.Manager as the REST API.  It runs with
// database credentials, so it is trusted: no ACL check is applied.  The
// object graph comes from an Opener so tests can hand in an in-memory
// App while cmd/wpmn loads conf/global.yaml.
//
// Commands
// --------
//
//	install                                 apply the schema
//	create <domain> <path> [flags]          add a network
//	update <id> <domain> [<path>]           change a network's address
//	delete <id> [--force]                   delete a network
//	move-site <site_id> <network_id>        re-parent a site
//	list [--format table|json] [--search]   list networks
//	sites <network_id>                      list a network's sites
//	token <user_id>                         mint an API bearer token
//
// Notes
// -----
//   - Success lines go to stdout in green, tables through pterm.
//   - Oxford commas, two spaces after periods.

package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stuttter/wp-multi-network-sub000/internal/app"
	"github.com/stuttter/wp-multi-network-sub000/internal/config"
	"github.com/stuttter/wp-multi-network-sub000/internal/logger"
	"github.com/stuttter/wp-multi-network-sub000/internal/scope"
)

// Globals are the persistent flags of the root command.
type Globals struct {
	ConfigPath string
	Debug      bool
}

// Opener builds the App for one command run and returns its release func.
type Opener func(ctx context.Context, g Globals) (*app.App, func(), error)

// ConfigOpener loads configuration from g.ConfigPath (or the discovered
// conf/global.yaml), resolves secrets, and wires a fresh App.
func ConfigOpener(ctx context.Context, g Globals) (*app.App, func(), error) {
	log := logger.Console(g.Debug)

	var (
		cfg *config.Config
		err error
	)
	if g.ConfigPath != "" {
		root := filepath.Dir(filepath.Dir(g.ConfigPath))
		cfg, err = config.LoadFile(root, g.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := app.ResolveSecrets(ctx, cfg, log); err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

// NewRoot returns the `wpmn` command tree.
func NewRoot(open Opener) *cobra.Command {
	var g Globals
	root := &cobra.Command{
		Use:           "wpmn",
		Short:         "Manage multisite networks",
		Long:          "Create, update, delete, and list networks, and move sites between them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "path to global.yaml (default: discovered conf/global.yaml)")
	root.PersistentFlags().BoolVar(&g.Debug, "debug", false, "log at debug level to stderr")

	// with runs fn against a freshly opened App with a context switch
	// stack attached.
	with := func(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, release, err := open(ctx, g)
		if err != nil {
			return err
		}
		defer release()
		ctx = scope.WithStack(ctx, a.Manager.Stack(ctx))
		return fn(ctx, a)
	}

	root.AddCommand(
		installCmd(with),
		createCmd(with),
		updateCmd(with),
		deleteCmd(with),
		moveSiteCmd(with),
		listCmd(with),
		sitesCmd(with),
		tokenCmd(with),
	)
	return root
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error
