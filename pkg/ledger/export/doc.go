// Package export serializes attempt records for archives and tooling.
// JSONExporter and CSVExporter implement ledger.Exporter for in-memory
// slices; their ExportStream variants consume a storage QueryStream channel
// and flush periodically, so arbitrarily large ledgers export in constant
// memory.
package export
