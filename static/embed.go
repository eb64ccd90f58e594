// Package static embeds the editor page and its assets.
package static

import "embed"

//go:embed dist
var FS embed.FS
