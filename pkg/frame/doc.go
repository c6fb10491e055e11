// Package frame is a small columnar engine: eager tables, lazy plans and
// typed columns, with parquet read and write.
//
// Tables and columns are immutable. Every operation that produces a new
// table, plan or column returns a fresh value, so each result has its own
// identity. Operations report what they produced through a per-operation
// hook table (see Hook), which lets other packages observe results without
// replacing any method.
//
// Supported column types are int64, float64, string and bool. Parquet files
// written elsewhere with int32 or float32 columns are widened on read.
package frame
