// Package appfs exposes the assets compiled into the binary: database
// migrations and email templates.
package appfs

import "embed"

//go:embed all:migrations all:templates
var FS embed.FS
