package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/concepts/internal/comm"
	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// Output formats.
const (
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputTable = "table"
)

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML, outputTable:
		return nil
	}
	return errors.Wrapf(types.ErrInvalidArgument, "unknown output format %q (valid: json, yaml, table)", format)
}

// render writes v in the chosen format. Types without a table layout fall
// back to JSON.
func render(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case outputTable:
		if ok, err := renderTable(w, v); ok {
			return err
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json")
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func renderTable(w io.Writer, v any) (bool, error) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch rows := v.(type) {
	case *types.Concept:
		return renderTable(w, []*types.Concept{rows})
	case []*types.Concept:
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tOWNERS\tALIGNED\tDESCRIPTION")
		for _, c := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				c.ID, c.Name, c.TypeID, len(c.Owners), len(c.AlignedConcepts), oneLine(c.Description))
		}
	case []types.Alignment:
		fmt.Fprintln(tw, "CONCEPT\tFACTOR")
		for _, a := range rows {
			fmt.Fprintf(tw, "%s\t%g\n", a.ConceptID, a.Factor)
		}
	case []types.Version:
		fmt.Fprintln(tw, "AT\tHANDLE\tMESSAGE")
		for _, v := range rows {
			handle := v.Handle
			if handle == "" {
				handle = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.At.Format(types.TimestampLayout), handle, oneLine(v.Message))
		}
	case []types.OwnerInfo:
		fmt.Fprintln(tw, "ID\tNAME\tENDPOINT")
		for _, o := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", o.ID, o.Name, o.Endpoint)
		}
	case *types.OwnerInfo:
		return renderTable(w, []types.OwnerInfo{*rows})
	case []comm.ConceptResponse:
		fmt.Fprintln(tw, "ID\tNAME\tFACTOR\tGUESS\tDESCRIPTION\tUPGRADE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%g\t%t\t%s\t%s\n",
				r.ID, r.Name, r.AlignmentFactor, r.IsGuess, oneLine(r.Description), oneLine(r.UpgradeDescription))
		}
	case *comm.ConceptResponse:
		return renderTable(w, []comm.ConceptResponse{*rows})
	default:
		return false, nil
	}
	return true, tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
