// Package sqlgen lowers a validated FHIRPath AST into an ordered chain of
// SQL common table expressions plus a final SELECT, against whichever
// dialect.Dialect the caller supplies.
//
// The pipeline inside the package mirrors the compiler's overall shape at a
// smaller scale: Translator walks the AST and produces a flat list of
// SQLFragment values, BuildCTEs turns that list into named CTE records, and
// AssembleSQL orders the CTEs by dependency and renders the final SQL text.
package sqlgen
