package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

func newRegistryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the owner registry",
		Long:  "Read and write owner endpoints, locally or through registry.url when set.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "register <owner-id> <name> <endpoint>",
			Short: "Record where an owner can be queried",
			Args:  exactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.withNode(ctx, func(n *node) error {
					if err := n.registry.RegisterOwner(ctx, args[0], args[1], args[2]); err != nil {
						return err
					}
					return render(cmd.OutOrStdout(), a.output,
						&types.OwnerInfo{ID: args[0], Name: args[1], Endpoint: args[2]})
				})
			},
		},
		&cobra.Command{
			Use:   "get <owner-id>",
			Short: "Show an owner's endpoint",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.withNode(ctx, func(n *node) error {
					endpoint, err := n.registry.GetOwnerEndpoint(ctx, args[0])
					if err != nil {
						return err
					}
					return render(cmd.OutOrStdout(), a.output, map[string]string{"endpoint": endpoint})
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered owners",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.withNode(ctx, func(n *node) error {
					owners, err := n.registry.ListAllOwners(ctx)
					if err != nil {
						return err
					}
					return render(cmd.OutOrStdout(), a.output, owners)
				})
			},
		},
		&cobra.Command{
			Use:   "find <name>",
			Short: "Find a registered owner by name, ignoring case",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				return a.withNode(ctx, func(n *node) error {
					info, err := n.registry.FindOwnerByName(ctx, args[0])
					if err != nil {
						return err
					}
					if info == nil {
						return errors.Wrapf(types.ErrNotFound, "no owner named %q", args[0])
					}
					return render(cmd.OutOrStdout(), a.output, info)
				})
			},
		},
	)
	return cmd
}
