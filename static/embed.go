package static

import "embed"

// FS holds the browser page served at /
//
//go:embed index.html
var FS embed.FS
