// Package mysql embeds the MySQL migrations.
package mysql

import "embed"

// FS contains the connection store migrations.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
