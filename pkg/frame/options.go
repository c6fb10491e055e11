package frame

import (
	"sort"

	"github.com/apache/arrow/go/v15/arrow/memory"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// Header is the file-level key/value metadata of a parquet file.
type Header map[string]string

// Keys returns the header keys in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of h. Clone of nil is an empty, non-nil Header.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// defaultRowGroupSize is the number of rows per parquet row group.
const defaultRowGroupSize = 64 * 1024

// WriteOption configures WriteParquet.
type WriteOption func(*writeConfig)

type writeConfig struct {
	header       Header
	compression  string
	rowGroupSize int64
	mem          memory.Allocator
}

func newWriteConfig(opts []WriteOption) *writeConfig {
	cfg := &writeConfig{
		header:       Header{},
		compression:  types.CompressionSnappy,
		rowGroupSize: defaultRowGroupSize,
		mem:          memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithHeader stores key=value in the file-level header. Later options win
// for the same key.
func WithHeader(key, value string) WriteOption {
	return func(c *writeConfig) {
		c.header[key] = value
	}
}

// WithHeaders stores every entry of h in the file-level header.
func WithHeaders(h Header) WriteOption {
	return func(c *writeConfig) {
		for k, v := range h {
			c.header[k] = v
		}
	}
}

// WithCompression selects the page compression codec by name (see the
// types.Compression constants). The default is snappy.
func WithCompression(codec string) WriteOption {
	return func(c *writeConfig) {
		c.compression = codec
	}
}

// WithRowGroupSize sets the maximum rows per row group.
func WithRowGroupSize(n int64) WriteOption {
	return func(c *writeConfig) {
		if n > 0 {
			c.rowGroupSize = n
		}
	}
}

// ReadOption configures ReadParquet and ScanParquet.
type ReadOption func(*readConfig)

type readConfig struct {
	projection []string
	mem        memory.Allocator
}

func newReadConfig(opts []ReadOption) *readConfig {
	cfg := &readConfig{mem: memory.DefaultAllocator}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithProjection keeps only the named columns, in that order.
func WithProjection(cols ...string) ReadOption {
	return func(c *readConfig) {
		c.projection = append([]string(nil), cols...)
	}
}
