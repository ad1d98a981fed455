// Package cli implements the interactive terminal client for a record
// backend: a small REPL over the recordbase SDK with a persisted session.
package cli
