package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tablemeta/internal/paths"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "TABLEMETA"

	cfgKeyAutoPreserve  = "auto_preserve"
	cfgKeyMergePriority = "merge_priority"
	cfgKeyLogLevel      = "log_level"
	cfgKeyCompression   = "compression"
)

const configHeader = "# tablemeta configuration\n"

// loadConfig reads config.yaml from dir with viper. A missing file is not
// an error. TABLEMETA_* environment variables override the file and a
// non-empty logLevel overrides both.
func loadConfig(dir, logLevel string) (types.Config, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := types.Config{
		MergePriority: types.MergePriority(v.GetString(cfgKeyMergePriority)),
		LogLevel:      v.GetString(cfgKeyLogLevel),
		Compression:   v.GetString(cfgKeyCompression),
	}
	if v.IsSet(cfgKeyAutoPreserve) {
		cfg.AutoPreserve = types.Bool(v.GetBool(cfgKeyAutoPreserve))
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaultConfig is what init writes.
func defaultConfig() types.Config {
	return types.Config{
		AutoPreserve:  types.Bool(true),
		MergePriority: types.MergePriorityReceiver,
		LogLevel:      "info",
		Compression:   types.CompressionSnappy,
	}
}

// writeConfigIfMissing writes the default config.yaml into dir unless one
// exists. It reports whether a file was written.
func writeConfigIfMissing(dir string) (bool, error) {
	path := paths.ConfigFile(dir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfig())
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// newLogger builds a JSON logger at level writing to w.
func newLogger(w io.Writer, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
