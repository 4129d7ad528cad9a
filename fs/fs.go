// Package appfs embeds files needed at runtime so binaries stay standalone.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
