// Package logging builds the structured loggers used across the module and
// keeps credential material out of their output.
//
// New constructs a *log/slog.Logger from a Config (level, json/text format,
// optional source locations). A Redactor, seeded with the configured raw
// keys, can be attached so that any key that leaks into a message, an
// attribute value, or an error string is replaced by its sha256 short id
// before the record is written; built-in patterns additionally catch common
// API-key shapes that were never configured. Redaction runs as a
// slog.Handler middleware, so it also covers attributes bound early via
// Logger.With.
//
// The invariant the rest of the module relies on: raw credentials never
// appear in log output, only redacted identifiers.
package logging
