package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/meta"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

type setOptions struct {
	out         string
	remove      []string
	compression string
}

func newSetCmd(a *app) *cobra.Command {
	var opts setOptions
	cmd := &cobra.Command{
		Use:   "set <file> [key=value...]",
		Short: "Add, change or remove metadata keys of a parquet file",
		Long: "Read a parquet file with its metadata, apply the given keys and write\n" +
			"it back. Values are parsed as YAML, so 3 is an integer, 0.5 a float,\n" +
			"true a boolean and [a, b] a list; anything else is a string.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSet(cmd, args[0], args[1:], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "write to this file instead of in place")
	cmd.Flags().StringSliceVar(&opts.remove, "remove", nil, "keys to remove")
	cmd.Flags().StringVar(&opts.compression, "compression", "", "compression codec (default from config)")
	return cmd
}

func (a *app) runSet(cmd *cobra.Command, path string, pairs []string, opts setOptions) error {
	updates, err := parsePairs(pairs)
	if err != nil {
		return userError(err)
	}
	if len(updates) == 0 && len(opts.remove) == 0 {
		return userError(fmt.Errorf("nothing to change: give key=value pairs or --remove"))
	}
	var writeOpts []frame.WriteOption
	if opts.compression != "" {
		if err := (types.Config{Compression: opts.compression}).Validate(); err != nil {
			return userError(fmt.Errorf("compression %q: %w", opts.compression, err))
		}
		writeOpts = append(writeOpts, frame.WithCompression(opts.compression))
	}

	tbl, err := meta.ReadParquetWithMeta(path)
	if err != nil {
		return sysError(err)
	}

	acc := meta.For(tbl)
	if len(opts.remove) > 0 {
		m := acc.GetMetadata()
		for _, k := range opts.remove {
			delete(m, k)
		}
		acc.ClearMetadata()
		acc.Update(m)
	}
	acc.Update(updates)

	out := opts.out
	if out == "" {
		out = path
	}
	if err := acc.WriteParquet(out, writeOpts...); err != nil {
		if types.IsEncodingError(err) {
			return userError(err)
		}
		return sysError(err)
	}

	keys := acc.GetMetadata().Keys()
	a.logger.Info("metadata written",
		zap.String("path", out),
		zap.Strings("set", updates.Keys()),
		zap.Strings("removed", opts.remove))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d keys to %s\n", len(keys), out)
	return nil
}

// parsePairs turns key=value arguments into metadata. Values are parsed as
// YAML; one that does not parse is kept as the raw string.
func parsePairs(pairs []string) (types.Metadata, error) {
	m := make(types.Metadata, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid pair %q: want key=value", p)
		}
		m[key] = parseValue(raw)
	}
	return m, nil
}

func parseValue(raw string) any {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return raw
	}
	if len(doc.Content) == 0 {
		return nil
	}
	keepTimestamps(&doc)
	var v any
	if err := doc.Decode(&v); err != nil {
		return raw
	}
	return v
}

// keepTimestamps retags date-like scalars as strings. A time.Time cannot be
// stored as metadata.
func keepTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestamps(c)
	}
}
