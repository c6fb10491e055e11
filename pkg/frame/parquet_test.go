package frame

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tablemeta/pkg/types"
)

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	tbl := MustTable(
		NewInt64("id", 1, 2, 3),
		NewFloat64("score", 0.25, 0.5, 1e9),
		NewString("name", "a", "", "c"),
		NewBool("ok", true, false, true),
	)

	require.NoError(t, tbl.WriteParquet(path,
		WithHeader("owner", "alice"),
		WithHeaders(Header{"team": "data"}),
	))

	got, header, err := ReadParquetWithHeader(path)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got), "round trip changed the table")
	assert.Equal(t, "alice", header["owner"])
	assert.Equal(t, "data", header["team"])

	only, err := ReadParquetHeader(path)
	require.NoError(t, err)
	assert.Equal(t, header, only)
}

func TestParquetCompression(t *testing.T) {
	tbl := MustTable(NewInt64("n", 1, 2, 3, 4))
	for _, codec := range []string{
		types.CompressionSnappy,
		types.CompressionZstd,
		types.CompressionGzip,
		types.CompressionUncompressed,
	} {
		t.Run(codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), codec+".parquet")
			require.NoError(t, tbl.WriteParquet(path, WithCompression(codec), WithRowGroupSize(2)))
			got, err := ReadParquet(path)
			require.NoError(t, err)
			assert.True(t, tbl.Equal(got))
		})
	}

	err := tbl.WriteParquet(filepath.Join(t.TempDir(), "x.parquet"), WithCompression("lz77"))
	assert.ErrorIs(t, err, types.ErrCompressionUnknown)
}

func TestParquetProjection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	require.NoError(t, sampleTable(t).WriteParquet(path))

	got, err := ReadParquet(path, WithProjection("score", "id"))
	require.NoError(t, err)
	assert.Equal(t, []string{"score", "id"}, got.Columns())

	_, err = ReadParquet(path, WithProjection("missing"))
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestScanParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.parquet")
	require.NoError(t, sampleTable(t).WriteParquet(path))

	plan := ScanParquet(path).Filter(func(r Row) bool { return r.Int64("id")%2 == 0 })
	assert.Contains(t, plan.Explain(), "source: parquet "+path)

	got, err := plan.Collect(context.Background())
	require.NoError(t, err)
	ids, err := got.Column("id")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids.Values())
}

func TestParquetMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.parquet")

	_, err := ReadParquet(missing)
	assert.Error(t, err)

	_, err = ReadParquetHeader(missing)
	assert.Error(t, err)

	_, err = ScanParquet(missing).Collect(context.Background())
	assert.Error(t, err)
}

func TestWriteParquetLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.parquet")
	tbl := sampleTable(t)

	require.NoError(t, tbl.WriteParquet(path))
	require.NoError(t, tbl.Head(1).WriteParquet(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.parquet", entries[0].Name())

	got, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Height())
}
