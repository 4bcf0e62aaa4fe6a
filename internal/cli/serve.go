package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/concepts/internal/comm"
	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/internal/server"
	"github.com/mesh-intelligence/concepts/internal/storage/metrics"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

const metricsNamespace = "concepts"

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve concept queries, the registry and raw items over HTTP",
		Long: "Start the HTTP node. /query answers for the local owner and is only\n" +
			"mounted after init. /metrics exposes Prometheus metrics.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.ComponentLogger("cli")
			if addr == "" {
				addr = a.v.GetString(cfgKeyServerAddr)
			}

			collector := metrics.NewCollector(metricsNamespace)
			n, err := a.openNode(ctx, collector)
			if err != nil {
				return err
			}
			defer n.Close()

			opts := server.Options{
				Registry: n.registry,
				Items:    n.concepts,
				Metrics:  collector,
			}
			ownerID, err := a.ownerID()
			switch {
			case err == nil:
				opts.Comm = comm.NewOwnerCommunication(n.manager, ownerID)
			case errors.Is(err, types.ErrNotInitialized):
				log.Warnw("No local owner, /query disabled", logger.FieldError, err)
			default:
				return err
			}

			return server.New(opts).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
