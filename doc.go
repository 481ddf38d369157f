// Package parquetlinter is the root of the parquet-linter module.
//
// parquet-linter reads the footer and a sample of the pages of a parquet
// file, estimates the cardinality of every column and reports encoding,
// compression, statistics and layout problems. Each diagnostic carries the
// prescription directives that fix it, and a prescription can be applied
// with a schema-preserving rewrite.
//
// # Packages
//
//   - pkg/metadata loads a file into a FileContext
//   - pkg/cardinality estimates distinct values per column
//   - pkg/rules runs the lint rules and exports their fixes
//   - pkg/prescription parses and folds the directive language
//   - pkg/rewrite applies a resolved prescription
//   - pkg/compression and pkg/benchmark measure codecs and load cost
//
// # Quick Start
//
//	parquet-linter check data.parquet --export-prescription fixes.txt
//	parquet-linter rewrite data.parquet -o fixed.parquet --from-prescription fixes.txt --benchmark 3
package parquetlinter
