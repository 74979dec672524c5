// Package db embeds the SQL migration files so the binary can migrate its
// own schema without a checkout of the repository.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
