package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/concepts/internal/comm"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id> [name]",
		Short: "Answer a concept query as the local owner",
		Long: "Resolve a query the way this node answers other owners: known concepts\n" +
			"report their alignment factor, unknown ids produce a guessed concept.",
		Args: rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q := comm.ConceptQuery{ID: args[0]}
			if len(args) == 2 {
				q.Name = args[1]
			}
			return a.withNode(ctx, func(n *node) error {
				oc, err := a.communication(n)
				if err != nil {
					return err
				}
				res, err := oc.QueryConceptsFromOtherOwner(ctx, []comm.ConceptQuery{q})
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, res)
			})
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query <owner-id> <concept-name>",
		Short: "Ask another owner about a concept by name",
		Long:  "Look up the owner's endpoint in the registry and send it a concept query.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withNode(ctx, func(n *node) error {
				cfg, err := a.storageConfig()
				if err != nil {
					return err
				}
				p := comm.NewProtocol(n.registry, cfg.Timeout())
				res, err := p.QueryConcept(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.output, res)
			})
		},
	}
}
