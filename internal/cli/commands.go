// internal/cli/commands.go
//
// Subcommands of `wpmn`.
//
// Each constructor returns a *cobra.Command whose RunE parses its
// arguments first and only then opens the App through `with`, so usage
// errors never touch the database.  Results print through success, warn,
// and table (output.go); --format json writes indented JSON instead.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stuttter/wp-multi-network-sub000/internal/app"
	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/network"
	"github.com/stuttter/wp-multi-network-sub000/internal/users"
)

func installCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create the network, site, and user tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return with(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Install(ctx); err != nil {
					return err
				}
				success(cmd, "Schema installed (prefix %q).", a.Config.Database.TablePrefix)
				return nil
			})
		},
	}
}

func createCmd(with runner) *cobra.Command {
	var (
		siteName string
		user     string
		clone    int64
		options  string
	)
	cmd := &cobra.Command{
		Use:   "create <domain> <path>",
		Short: "Add a network with a root site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, a *app.App) error {
				owner, err := resolveUser(ctx, a.Users, user)
				if err != nil {
					return err
				}
				in := network.CreateInput{
					Domain:       args[0],
					Path:         args[1],
					SiteName:     siteName,
					UserID:       owner.ID,
					CloneNetwork: clone,
				}
				if options != "" {
					in.OptionsToClone = splitList(options)
				}
				id, err := a.Manager.Create(ctx, in)
				if err != nil {
					return err
				}
				success(cmd, "Network %d created.", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&siteName, "site_name", "", "network name (default: domain and path)")
	cmd.Flags().StringVar(&user, "user", "", "owner: user id or login (required)")
	cmd.Flags().Int64Var(&clone, "clone_network", 0, "network to copy options from")
	cmd.Flags().StringVar(&options, "options_to_clone", "", "comma-separated option names to copy")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func updateCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <domain> [<path>]",
		Short: "Change a network's domain and path, rewriting its sites",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "network id")
			if err != nil {
				return err
			}
			path := "/"
			if len(args) == 3 {
				path = args[2]
			}
			return with(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Manager.Update(ctx, id, args[1], path); err != nil {
					return err
				}
				success(cmd, "Network %d updated.", id)
				return nil
			})
		},
	}
}

func deleteCmd(with runner) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a network",
		Long:  "Delete a network.  With --force its sites are deleted, or moved to network 0 when orphan rescue is on.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "network id")
			if err != nil {
				return err
			}
			return with(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Manager.Delete(ctx, id, force); err != nil {
					return err
				}
				success(cmd, "Network %d deleted.", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "also delete (or rescue) the network's sites")
	return cmd
}

func moveSiteCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "move-site <site_id> <network_id>",
		Short: "Move a site to another network",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID, err := parseID(args[0], "site id")
			if err != nil {
				return err
			}
			dest, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || dest < 0 {
				return fmt.Errorf("network id must be a non-negative integer, got %q", args[1])
			}
			return with(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Manager.MoveSite(ctx, siteID, dest)
				if err != nil {
					return err
				}
				if !res.Moved {
					warn(cmd, "Site %d stays on network %d.", siteID, res.NetworkID)
					return nil
				}
				success(cmd, "Site %d moved to network %d.", siteID, res.NetworkID)
				return nil
			})
		},
	}
}

func listCmd(with runner) *cobra.Command {
	var (
		format string
		q      directory.Query
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be table or json, got %q", format)
			}
			return with(cmd, func(ctx context.Context, a *app.App) error {
				rows, _, err := a.Manager.List(ctx, q)
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(cmd, rows)
				}
				data := [][]string{{"ID", "Domain", "Path", "Name", "Main site"}}
				for _, n := range rows {
					data = append(data, []string{
						strconv.FormatInt(n.ID, 10), n.Domain, n.Path, n.SiteName,
						strconv.FormatInt(n.MainSiteID, 10),
					})
				}
				return table(cmd, data)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	cmd.Flags().StringVar(&q.Search, "search", "", "substring of domain or path")
	cmd.Flags().StringVar(&q.OrderBy, "orderby", "id", "id, domain, or path")
	cmd.Flags().StringVar(&q.Order, "order", "asc", "asc or desc")
	return cmd
}

func sitesCmd(with runner) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "sites <network_id>",
		Short: "List the sites of a network (0 lists rescued orphans)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 0 {
				return fmt.Errorf("network id must be a non-negative integer, got %q", args[0])
			}
			return with(cmd, func(ctx context.Context, a *app.App) error {
				sites, err := a.Manager.Sites(ctx, id)
				if err != nil {
					return err
				}
				if format == "json" {
					return writeJSON(cmd, sites)
				}
				data := [][]string{{"ID", "Domain", "Path", "Public", "Registered"}}
				for _, s := range sites {
					data = append(data, []string{
						strconv.FormatInt(s.ID, 10), s.Domain, s.Path,
						strconv.FormatBool(s.Public), s.Registered.Format("2006-01-02 15:04"),
					})
				}
				return table(cmd, data)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	return cmd
}

func tokenCmd(with runner) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user>",
		Short: "Mint an API bearer token for a user id or login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return with(cmd, func(ctx context.Context, a *app.App) error {
				if a.Tokens == nil {
					return errors.New("auth.jwt_secret is not configured")
				}
				u, err := resolveUser(ctx, a.Users, args[0])
				if err != nil {
					return err
				}
				tok, err := a.Tokens.Issue(u.ID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
				return err
			})
		},
	}
}

//
// Helpers
//

// resolveUser accepts a numeric id or a login.
func resolveUser(ctx context.Context, s *users.Store, ref string) (*users.User, error) {
	if ref == "" {
		return nil, errors.New("a user id or login is required")
	}
	var (
		u   *users.User
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		u, err = s.ByID(ctx, id)
	} else {
		u, err = s.ByLogin(ctx, ref)
	}
	if errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", network.ErrUserNotFound, ref)
	}
	return u, err
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", what, s)
	}
	return id, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
