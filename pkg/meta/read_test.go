package meta

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablemeta/internal/codec"
	"github.com/mesh-intelligence/tablemeta/pkg/frame"
	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.parquet")
	tbl := sample()
	For(tbl).Update(types.Metadata{"owner": "Alice", "confidence": 0.95})

	require.NoError(t, For(tbl).WriteParquet(path))

	got, err := ReadParquetWithMeta(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))
	assert.Equal(t, types.Metadata{"owner": "Alice", "confidence": 0.95}, For(got).GetMetadata())
}

func TestParquetRoundTripNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.parquet")
	tbl := sample()
	want := types.Metadata{
		"tags":    []any{"pii", "eu"},
		"version": 3,
		"ratio":   1.0,
		"lineage": map[string]any{"source": "api", "steps": []any{"dedupe", "filter"}},
		"note":    nil,
	}
	For(tbl).Update(want)

	require.NoError(t, For(tbl).WriteParquet(path, frame.WithCompression(types.CompressionZstd)))

	got, err := ReadParquetWithMeta(path)
	require.NoError(t, err)
	assert.Equal(t, want, For(got).GetMetadata())
}

func TestParquetRoundTripNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.parquet")
	tbl := sample()
	For(tbl).Update(types.Metadata{
		"rows":   int64(7),
		"shard":  uint16(3),
		"ratio":  float32(0.5),
		"cursor": uint64(math.MaxUint64),
	})

	require.NoError(t, For(tbl).WriteParquet(path))

	got, err := ReadParquetWithMeta(path)
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{
		"rows":   7,
		"shard":  3,
		"ratio":  0.5,
		"cursor": uint64(math.MaxUint64),
	}, For(got).GetMetadata())
}

func TestWriteParquetKeepsHeaderEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header.parquet")
	tbl := sample()
	For(tbl).Set("owner", "Alice")

	require.NoError(t, For(tbl).WriteParquet(path, frame.WithHeader("writer", "etl")))

	header, err := frame.ReadParquetHeader(path)
	require.NoError(t, err)
	assert.Equal(t, "etl", header["writer"])
	assert.Equal(t, `{"owner":"Alice"}`, header[codec.HeaderKey])
}

func TestWriteParquetColumnAndPlan(t *testing.T) {
	dir := t.TempDir()

	t.Run("column", func(t *testing.T) {
		withAutoPreserve(t, false)
		path := filepath.Join(dir, "column.parquet")
		col := frame.NewFloat64("weight", 1.5, 2.5)
		For(col).Set("unit", "kg")

		require.NoError(t, For(col).WriteParquet(path))

		got, err := ReadParquetWithMeta(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"weight"}, got.Columns())
		assert.Equal(t, types.Metadata{"unit": "kg"}, For(got).GetMetadata())
	})

	t.Run("plan", func(t *testing.T) {
		path := filepath.Join(dir, "plan.parquet")
		plan := sample().Lazy().Select("id")
		For(plan).Set("stage", "silver")

		require.NoError(t, For(plan).WriteParquetContext(context.Background(), path))

		got, err := ReadParquetWithMeta(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, got.Columns())
		assert.Equal(t, types.Metadata{"stage": "silver"}, For(got).GetMetadata())
	})

	t.Run("through call", func(t *testing.T) {
		path := filepath.Join(dir, "call.parquet")
		tbl := sample()
		For(tbl).Set("via", "call")

		_, err := For(tbl).Call("WriteParquet", path, frame.WithCompression(types.CompressionGzip))
		require.NoError(t, err)

		m, ok, err := ReadMetadata(path)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.Metadata{"via": "call"}, m)

		_, err = For(tbl).Call("WriteParquet", 42)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}

func TestWriteParquetEncodingFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.parquet")
	tbl := sample()
	For(tbl).Set("callback", func() {})

	err := For(tbl).WriteParquet(path)
	require.Error(t, err)
	assert.True(t, types.IsEncodingError(err))
	assert.ErrorIs(t, err, types.ErrEncoding)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file may be written")

	t.Run("existing file is untouched", func(t *testing.T) {
		good := sample()
		For(good).Set("owner", "Alice")
		require.NoError(t, For(good).WriteParquet(path))

		require.Error(t, For(tbl).WriteParquet(path))

		m, ok, err := ReadMetadata(path)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.Metadata{"owner": "Alice"}, m)
	})
}

func TestReadWithoutStoredMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.parquet")
	require.NoError(t, sample().WriteParquet(path))

	got, err := ReadParquetWithMeta(path)
	require.NoError(t, err)
	assert.Empty(t, For(got).GetMetadata())

	_, ok, err := ReadMetadata(path)
	require.NoError(t, err)
	assert.False(t, ok)

	plan, err := ScanParquetWithMeta(path)
	require.NoError(t, err)
	assert.Empty(t, For(plan).GetMetadata())
}

func TestReadMalformedMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.parquet")
	require.NoError(t, sample().WriteParquet(path, frame.WithHeader(codec.HeaderKey, "{not json")))

	_, err := ReadParquetWithMeta(path)
	assert.ErrorIs(t, err, types.ErrDecoding)

	_, err = ScanParquetWithMeta(path)
	assert.ErrorIs(t, err, types.ErrDecoding)
}

func TestScanParquetWithMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.parquet")
	tbl := sample()
	For(tbl).Update(types.Metadata{"owner": "Alice", "confidence": 0.95})
	require.NoError(t, For(tbl).WriteParquet(path))

	plan, err := ScanParquetWithMeta(path, frame.WithProjection("name"))
	require.NoError(t, err)
	want := types.Metadata{"owner": "Alice", "confidence": 0.95}
	assert.Equal(t, want, For(plan).GetMetadata())

	got, err := plan.Sort("name", true).Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, got.Columns())
	assert.Equal(t, want, For(got).GetMetadata())
}

func TestReadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.parquet")

	_, err := ReadParquetWithMeta(missing)
	assert.Error(t, err)

	_, err = ScanParquetWithMeta(missing)
	assert.Error(t, err)

	_, _, err = ReadMetadata(missing)
	assert.Error(t, err)
}
