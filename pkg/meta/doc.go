// Package meta attaches metadata to frame tables, plans and columns.
//
// Metadata is a key/value mapping kept beside a value, never inside it.
// It follows the value through transformations in two ways:
//
//   - Calls made through the accessor returned by For (Call, Apply and
//     ApplyE) always copy the receiver's metadata to the result.
//   - Direct engine calls (t.Filter(...), t.Column("x"), ...) copy it while
//     auto-preserve is enabled, which is the default.
//
// The first use of For, ReadParquetWithMeta, ScanParquetWithMeta or Install
// discovers the engine's value-producing methods and hooks them.
//
// Metadata can be stored in the file-level header of a parquet file with
// Accessor.WriteParquet and recovered with ReadParquetWithMeta or
// ScanParquetWithMeta.
package meta
