package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tablemeta/pkg/meta"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

func newInspectCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the metadata stored in a parquet file",
		Long:  "Print the metadata stored in a parquet file header. Only the footer\nis read. A file without stored metadata prints an empty mapping.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatYAML && format != formatJSON {
				return userError(fmt.Errorf("unknown format %q (valid: yaml, json)", format))
			}
			m, ok, err := meta.ReadMetadata(args[0])
			if err != nil {
				return sysError(err)
			}
			a.logger.Debug("inspect", zap.String("path", args[0]), zap.Bool("stored", ok))
			if !ok {
				m = types.Metadata{}
			}
			return writeMetadata(cmd.OutOrStdout(), m, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatYAML, "output format: yaml or json")
	return cmd
}

// writeMetadata renders m to w. Keys come out sorted in both formats.
func writeMetadata(w io.Writer, m types.Metadata, format string) error {
	if format == formatJSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return sysError(fmt.Errorf("marshal JSON: %w", err))
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any(m)); err != nil {
		return sysError(fmt.Errorf("marshal YAML: %w", err))
	}
	return enc.Close()
}
