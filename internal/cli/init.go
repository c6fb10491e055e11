package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration directory and a default config.yaml",
		Long:  "Create the configuration directory and write a default config.yaml.\nAn existing config.yaml is left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}
	wrote, err := writeConfigIfMissing(a.configDir)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	a.logger.Info("init", zap.String("config_dir", a.configDir), zap.Bool("created", wrote))

	out := cmd.OutOrStdout()
	if wrote {
		fmt.Fprintln(out, "tablemeta initialized")
	} else {
		fmt.Fprintln(out, "tablemeta already initialized")
	}
	fmt.Fprintln(out, "  config:", paths.ConfigFile(a.configDir))
	return nil
}
