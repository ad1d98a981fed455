// Package recordbase is a client library for a RecordBase backend: a
// record-oriented HTTP service exposing authentication, record CRUD,
// atomic transaction batches, and server-sent-event subscriptions.
//
// The Client owns the authentication session. Every call routed through it
// transparently renews credentials that are about to expire and attaches the
// correct headers, so higher-level helpers (RecordAPI, TransactionBatch)
// never deal with tokens directly.
//
// Typical use:
//
//	client, err := recordbase.NewClient("http://localhost:4000")
//	if err != nil { ... }
//
//	_, err = client.Login(ctx, "admin@localhost", "secret")
//	if err != nil { ... }
//
//	api := recordbase.Records[map[string]any](client, "simple_strict_table")
//	id, err := api.Create(ctx, map[string]any{"text_not_null": "test"})
package recordbase
