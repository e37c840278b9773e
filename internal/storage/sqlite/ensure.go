package sqlite

import "github.com/felixgeelhaar/outreach/internal/session"

// Ensure the SQLite store satisfies the session storage contract.
var _ session.KV = (*KVStore)(nil)
