package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

func newCreateCmd(a *app) *cobra.Command {
	var description, typeID string
	var weight float64
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a concept",
		Long: "Create a concept. With --weight the local owner tracks it: the owner\n" +
			"is added to the concept and the concept to the owner's aligned concepts.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tracked := cmd.Flags().Changed("weight")
			var ownerID string
			if tracked {
				var err error
				if ownerID, err = a.ownerID(); err != nil {
					return err
				}
			}
			return a.withNode(ctx, func(n *node) error {
				c := types.NewConcept(args[0], description, typeID)
				if tracked {
					c.AddOwner(ownerID, weight)
				}
				id, err := n.manager.CreateConcept(ctx, c)
				if err != nil {
					return err
				}
				if tracked {
					if err := n.manager.AddTrackedConcept(ctx, ownerID, id, weight); err != nil {
						return err
					}
				}
				return render(cmd.OutOrStdout(), a.output, c)
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "concept description")
	cmd.Flags().StringVarP(&typeID, "type", "t", types.DefaultTypeID, "id of the concept's type")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 0, "track the concept for the local owner with this factor")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a concept by id",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				c, err := mustConcept(ctx, n, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, c)
			})
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <name>",
		Short: "Show the first concept with an exact name",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				c, err := n.manager.FindConceptByName(ctx, args[0])
				if err != nil {
					return err
				}
				if c == nil {
					return errors.Wrapf(types.ErrNotFound, "no concept named %q", args[0])
				}
				return render(cmd.OutOrStdout(), a.output, c)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var owners, sorted bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored concepts",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				var (
					list []*types.Concept
					err  error
				)
				if owners {
					list, err = n.manager.ListOwners(ctx)
				} else {
					list, err = n.manager.ListAllConcepts(ctx)
				}
				if err != nil {
					return err
				}
				if sorted {
					types.SortConcepts(list)
				}
				return render(cmd.OutOrStdout(), a.output, list)
			})
		},
	}
	cmd.Flags().BoolVar(&owners, "owners", false, "list owner concepts only")
	cmd.Flags().BoolVar(&sorted, "sort", false, "order by name, type id, description, creation time, then id")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var name, description, typeID string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a concept's name, description or type",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if name == "" && description == "" && typeID == "" {
				return errors.Wrap(types.ErrInvalidArgument, "nothing to update: pass --name, --description or --type")
			}
			return a.withNode(ctx, func(n *node) error {
				c, err := mustConcept(ctx, n, args[0])
				if err != nil {
					return err
				}
				c.Update(name, description, typeID)
				if err := n.manager.UpdateConcept(ctx, c.ID, c); err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, c)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&typeID, "type", "t", "", "new type id")
	return cmd
}

func newSetPropertyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-property <id> <key> <value>",
		Short: "Set a free-form property on a concept",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				c, err := mustConcept(ctx, n, args[0])
				if err != nil {
					return err
				}
				c.SetProperty(args[1], args[2])
				if err := n.manager.UpdateConcept(ctx, c.ID, c); err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, c)
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a concept",
		Long:    "Delete a concept. Edges in other concepts that point at it are left in place.",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				if err := n.manager.RemoveConcept(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newTrackCmd(a *app) *cobra.Command {
	var ownerID string
	var weight float64
	cmd := &cobra.Command{
		Use:   "track <concept-id>",
		Short: "Add a concept to an owner's aligned concepts",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ownerID == "" {
				id, err := a.ownerID()
				if err != nil {
					return err
				}
				ownerID = id
			}
			return a.withNode(ctx, func(n *node) error {
				if err := n.manager.AddTrackedConcept(ctx, ownerID, args[0], weight); err != nil {
					return err
				}
				owner, err := mustConcept(ctx, n, ownerID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, owner.AlignedConcepts)
			})
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner concept id (default: the local owner)")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 1, "alignment factor")
	return cmd
}

func newOwnersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "owners <concept-id>",
		Short: "Show the owner edges of a concept",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				c, err := mustConcept(ctx, n, args[0])
				if err != nil {
					return err
				}
				owners, err := n.manager.GetOwners(ctx, c)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, owners)
			})
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the recorded versions of a concept",
		Long: "List every change made to a concept, oldest first, including its\n" +
			"deletion. Needs a backend that keeps history (cas).",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				versions, err := n.manager.History(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, versions)
			})
		},
	}
}
