// Package migrations embeds the SQL schema for the tenant, auth, session,
// and audit tables so tooling and integration tests can apply it without
// reaching outside the module.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
