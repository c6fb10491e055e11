package meta

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablemeta/internal/codec"
	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

// ReadParquetWithMeta reads the parquet file at path and attaches the
// metadata stored in its header to the returned table. A file without
// stored metadata yields a table with none; that is not an error. A stored
// value that cannot be decoded fails with types.ErrDecoding.
//
// Values come back in their decoded JSON form, not their original Go types:
// integers of any type read as int, or int64 or uint64 when they do not fit
// an int, and floats read as float64.
func ReadParquetWithMeta(path string, opts ...frame.ReadOption) (*frame.Table, error) {
	s := start()
	t, header, err := frame.ReadParquetWithHeader(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.attach(t, path, header); err != nil {
		return nil, err
	}
	return t, nil
}

// ScanParquetWithMeta returns a lazy plan over the parquet file at path
// with the file's stored metadata attached. Only the file footer is read
// here; the data is read when the plan is collected.
func ScanParquetWithMeta(path string, opts ...frame.ReadOption) (*frame.Plan, error) {
	s := start()
	header, err := frame.ReadParquetHeader(path)
	if err != nil {
		return nil, err
	}
	p := frame.ScanParquet(path, opts...)
	if err := s.attach(p, path, header); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadMetadata returns the metadata stored in the header of the parquet
// file at path without reading any data. ok is false if none is stored.
func ReadMetadata(path string) (types.Metadata, bool, error) {
	header, err := frame.ReadParquetHeader(path)
	if err != nil {
		return nil, false, err
	}
	md, ok, err := codec.Extract(header)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}
	return md, ok, nil
}

func (s *system) attach(v frame.Value, path string, header frame.Header) error {
	m, ok, err := codec.Extract(header)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if !ok {
		s.logger.Debug("no stored metadata", zap.String("path", path))
		return nil
	}
	s.reg.Record(v, m)
	s.logger.Debug("attached stored metadata",
		zap.String("path", path),
		zap.Stringer("kind", v.Kind()),
		zap.Strings("keys", m.Keys()))
	return nil
}
