package types

import "errors"

// MergePriority selects which side wins when an operation combines several
// tracked inputs (a vertical stack or a join) and more than one of them
// carries the same metadata key.
type MergePriority string

// Supported merge priorities.
const (
	// MergePriorityReceiver merges the other inputs in order, then lays the
	// receiver's mapping on top.
	MergePriorityReceiver MergePriority = "receiver"

	// MergePriorityArgument starts from the receiver's mapping and merges the
	// other inputs in order, so later inputs win.
	MergePriorityArgument MergePriority = "argument"
)

// Supported compression codecs for parquet output.
const (
	CompressionSnappy       = "snappy"
	CompressionZstd         = "zstd"
	CompressionGzip         = "gzip"
	CompressionUncompressed = "uncompressed"
)

// Config holds process-wide settings applied by meta.Configure.
type Config struct {
	// AutoPreserve enables propagation for direct engine calls. Nil keeps
	// the current setting (on by default).
	AutoPreserve *bool `json:"auto_preserve,omitempty" yaml:"auto_preserve,omitempty"`

	// MergePriority governs combining operations. Empty means receiver.
	MergePriority MergePriority `json:"merge_priority,omitempty" yaml:"merge_priority,omitempty"`

	// LogLevel is a zap level name used by the CLI ("debug", "info", ...).
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Compression is the default codec for parquet writes.
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`
}

// Config validation errors.
var (
	ErrMergePriorityUnknown = errors.New("unknown merge priority")
	ErrCompressionUnknown   = errors.New("unknown compression codec")
	ErrLogLevelUnknown      = errors.New("unknown log level")
)

var knownCompressions = map[string]bool{
	CompressionSnappy:       true,
	CompressionZstd:         true,
	CompressionGzip:         true,
	CompressionUncompressed: true,
}

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. The zero Config is valid.
func (c Config) Validate() error {
	switch c.MergePriority {
	case "", MergePriorityReceiver, MergePriorityArgument:
	default:
		return ErrMergePriorityUnknown
	}
	if c.Compression != "" && !knownCompressions[c.Compression] {
		return ErrCompressionUnknown
	}
	if c.LogLevel != "" && !knownLogLevels[c.LogLevel] {
		return ErrLogLevelUnknown
	}
	return nil
}

// GetMergePriority returns the effective merge priority.
func (c Config) GetMergePriority() MergePriority {
	if c.MergePriority == "" {
		return MergePriorityReceiver
	}
	return c.MergePriority
}

// GetCompression returns the effective compression codec.
func (c Config) GetCompression() string {
	if c.Compression == "" {
		return CompressionSnappy
	}
	return c.Compression
}

// GetLogLevel returns the effective log level.
func (c Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// Bool returns a pointer to b, for Config.AutoPreserve.
func Bool(b bool) *bool {
	return &b
}
