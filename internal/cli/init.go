package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/internal/state"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// initResult is printed by init.
type initResult struct {
	OwnerID    string `json:"ownerId" yaml:"ownerId"`
	OwnerName  string `json:"ownerName" yaml:"ownerName"`
	Endpoint   string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Registered bool   `json:"registered" yaml:"registered"`
	Existing   bool   `json:"existing" yaml:"existing"`
}

func newInitCmd(a *app) *cobra.Command {
	var peerID, endpoint string
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create the local owner and bootstrap the type graph",
		Long: "Create the Type and Owner concepts if missing, store an owner concept\n" +
			"for <name> and remember it as the owner this node acts for. With an\n" +
			"endpoint the owner is also published to the registry.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]
			sm := a.state()
			if sm.Exists() {
				st, err := sm.Load()
				if err == nil {
					return render(cmd.OutOrStdout(), a.output, initResult{
						OwnerID: st.OwnerID, OwnerName: st.OwnerName, Existing: true,
					})
				}
				if !errors.Is(err, types.ErrNotInitialized) {
					return err
				}
			}
			if endpoint == "" {
				endpoint = a.v.GetString(cfgKeyEndpoint)
			}

			return a.withNode(ctx, func(n *node) error {
				var (
					id  string
					err error
				)
				if peerID != "" {
					id, err = n.manager.RegisterOwner(ctx, name, peerID)
				} else {
					id, err = n.manager.CreateOwner(ctx, name)
				}
				if err != nil {
					return errors.Wrapf(err, "create owner %s", name)
				}

				res := initResult{OwnerID: id, OwnerName: name, Endpoint: endpoint}
				if endpoint != "" {
					if err := n.registry.RegisterOwner(ctx, id, name, endpoint); err != nil {
						return errors.Wrapf(err, "register owner %s", id)
					}
					res.Registered = true
				}
				if err := sm.Save(state.State{OwnerID: id, OwnerName: name}); err != nil {
					return err
				}
				logger.ComponentLogger("cli").Infow("Initialized owner",
					logger.FieldOwnerID, id, logger.FieldName, name)
				return render(cmd.OutOrStdout(), a.output, res)
			})
		},
	}
	cmd.Flags().StringVar(&peerID, "peer-id", "", "use this external id as the owner id")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "publish the owner at this endpoint (default: owner.endpoint)")
	return cmd
}
