package frame

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v15/arrow"
	"github.com/apache/arrow/go/v15/arrow/array"
	"github.com/apache/arrow/go/v15/arrow/memory"
	"github.com/apache/arrow/go/v15/parquet"
	"github.com/apache/arrow/go/v15/parquet/compress"
	"github.com/apache/arrow/go/v15/parquet/file"
	"github.com/apache/arrow/go/v15/parquet/metadata"
	"github.com/apache/arrow/go/v15/parquet/pqarrow"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

var codecs = map[string]compress.Compression{
	types.CompressionSnappy:       compress.Codecs.Snappy,
	types.CompressionZstd:         compress.Codecs.Zstd,
	types.CompressionGzip:         compress.Codecs.Gzip,
	types.CompressionUncompressed: compress.Codecs.Uncompressed,
}

// WriteParquet writes t to path. Header entries given with WithHeader land
// in the file-level key/value metadata. The file is written to a temporary
// sibling and renamed into place, so a failed write never leaves a partial
// file at path.
func (t *Table) WriteParquet(path string, opts ...WriteOption) error {
	cfg := newWriteConfig(opts)
	codec, ok := codecs[cfg.compression]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrCompressionUnknown, cfg.compression)
	}

	tbl, err := t.toArrow(cfg.header, cfg.mem)
	if err != nil {
		return err
	}
	defer tbl.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithAllocator(cfg.mem),
	)
	if err := pqarrow.WriteTable(tbl, &buf, cfg.rowGroupSize, props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

// ReadParquet reads the whole file at path into a table.
func ReadParquet(path string, opts ...ReadOption) (*Table, error) {
	t, _, err := ReadParquetWithHeader(path, opts...)
	return t, err
}

// ReadParquetWithHeader reads the file at path and also returns its
// file-level key/value header.
func ReadParquetWithHeader(path string, opts ...ReadOption) (*Table, Header, error) {
	return readParquet(context.Background(), path, newReadConfig(opts))
}

// ReadParquetHeader returns the file-level key/value header of the file at
// path. Only the footer is read.
func ReadParquetHeader(path string) (Header, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	defer rdr.Close()
	return headerOf(rdr.MetaData().KeyValueMetadata()), nil
}

// ScanParquet returns a plan that reads path when collected.
func ScanParquet(path string, opts ...ReadOption) *Plan {
	cfg := newReadConfig(opts)
	return newPlan("parquet "+path, func(ctx context.Context) (*Table, error) {
		t, _, err := readParquet(ctx, path, cfg)
		return t, err
	})
}

func readParquet(ctx context.Context, path string, cfg *readConfig) (*Table, Header, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	defer rdr.Close()

	header := headerOf(rdr.MetaData().KeyValueMetadata())

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, cfg.mem)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer tbl.Release()

	t, err := fromArrow(tbl)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	if len(cfg.projection) > 0 {
		if t, err = t.selectCols(cfg.projection); err != nil {
			return nil, nil, err
		}
	}
	return t, header, nil
}

func headerOf(kv metadata.KeyValueMetadata) Header {
	keys, values := kv.Keys(), kv.Values()
	h := make(Header, len(keys))
	for i := range keys {
		h[keys[i]] = values[i]
	}
	return h
}

func (t *Table) toArrow(header Header, mem memory.Allocator) (arrow.Table, error) {
	fields := make([]arrow.Field, len(t.cols))
	arrs := make([]arrow.Array, 0, len(t.cols))
	defer func() {
		for _, a := range arrs {
			a.Release()
		}
	}()
	for i, c := range t.cols {
		typ, arr, err := c.toArrow(mem)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: c.name, Type: typ}
		arrs = append(arrs, arr)
	}

	keys := header.Keys()
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = header[k]
	}
	md := arrow.NewMetadata(keys, values)
	schema := arrow.NewSchema(fields, &md)

	rec := array.NewRecord(schema, arrs, int64(t.height))
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec}), nil
}

func (c *Column) toArrow(mem memory.Allocator) (arrow.DataType, arrow.Array, error) {
	switch d := c.data.(type) {
	case []int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(d, nil)
		return arrow.PrimitiveTypes.Int64, b.NewArray(), nil
	case []float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(d, nil)
		return arrow.PrimitiveTypes.Float64, b.NewArray(), nil
	case []string:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(d, nil)
		return arrow.BinaryTypes.String, b.NewArray(), nil
	case []bool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(d, nil)
		return arrow.FixedWidthTypes.Boolean, b.NewArray(), nil
	}
	return nil, nil, fmt.Errorf("%w: column %q", types.ErrUnsupportedType, c.name)
}

func fromArrow(tbl arrow.Table) (*Table, error) {
	cols := make([]*Column, 0, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		c, err := columnFromChunks(col.Name(), col.DataType(), col.Data().Chunks())
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	t := &Table{cols: cols}
	if len(cols) > 0 {
		t.height = cols[0].Len()
	}
	return t, nil
}

func columnFromChunks(name string, typ arrow.DataType, chunks []arrow.Array) (*Column, error) {
	var (
		data  any
		dtype DataType
		err   error
	)
	switch typ.ID() {
	case arrow.INT64:
		dtype = Int64
		data, err = gatherChunks(chunks, func(v int64) int64 { return v })
	case arrow.INT32:
		dtype = Int64
		data, err = gatherChunks(chunks, func(v int32) int64 { return int64(v) })
	case arrow.FLOAT64:
		dtype = Float64
		data, err = gatherChunks(chunks, func(v float64) float64 { return v })
	case arrow.FLOAT32:
		dtype = Float64
		data, err = gatherChunks(chunks, func(v float32) float64 { return float64(v) })
	case arrow.STRING:
		dtype = String
		data, err = gatherChunks(chunks, func(v string) string { return v })
	case arrow.BOOL:
		dtype = Bool
		data, err = gatherChunks(chunks, func(v bool) bool { return v })
	default:
		return nil, fmt.Errorf("%w: column %q has arrow type %s", types.ErrUnsupportedType, name, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return &Column{name: name, dtype: dtype, data: data}, nil
}

// valuer is satisfied by the typed arrow arrays (*array.Int64 and friends).
type valuer[T any] interface {
	arrow.Array
	Value(int) T
}

// gatherChunks flattens typed arrow chunks into one slice. Null slots read
// as the zero value.
func gatherChunks[T, U any](chunks []arrow.Array, conv func(T) U) ([]U, error) {
	n := 0
	for _, ch := range chunks {
		n += ch.Len()
	}
	out := make([]U, 0, n)
	for _, ch := range chunks {
		a, ok := ch.(valuer[T])
		if !ok {
			return nil, fmt.Errorf("%w: unexpected array %T", types.ErrUnsupportedType, ch)
		}
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				var zero U
				out = append(out, zero)
				continue
			}
			out = append(out, conv(a.Value(i)))
		}
	}
	return out, nil
}

// writeFileAtomic writes data to path using the temp-file, fsync, rename
// pattern.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpName := filepath.Join(dir, "."+filepath.Base(path)+"-"+uuid.NewString()+".tmp")
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing parquet: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
