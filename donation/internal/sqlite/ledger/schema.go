package ledger

import _ "embed"

// Schema creates the ledger tables. It is safe to run on every start.
//
//go:embed schema.sql
var Schema string
