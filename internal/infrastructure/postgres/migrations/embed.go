// Package migrations embebe los scripts SQL que goose aplica al arrancar.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
