package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/meta"
)

func newDiscoverCmd() *cobra.Command {
	var kind, compare string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the operations that propagate metadata",
		Long: "Print the discovered operations of each kind, or of --kind only,\n" +
			"with the operations that were left out and why. With --compare,\n" +
			"print the operations --kind shares with another kind instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := frame.Kinds()
			if kind != "" {
				k, err := frame.ParseKind(kind)
				if err != nil {
					return userError(err)
				}
				kinds = []frame.Kind{k}
			}
			out := cmd.OutOrStdout()

			if compare != "" {
				if kind == "" {
					return userError(fmt.Errorf("--compare needs --kind"))
				}
				other, err := frame.ParseKind(compare)
				if err != nil {
					return userError(err)
				}
				fmt.Fprint(out, meta.Compare(kinds[0], other).String())
				return nil
			}

			for i, k := range kinds {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprint(out, meta.Describe(k))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "table, plan or column (default: all)")
	cmd.Flags().StringVar(&compare, "compare", "", "kind to compare --kind with")
	return cmd
}
