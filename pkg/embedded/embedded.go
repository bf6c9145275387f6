// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
)

// Files contains the dashboard page template (templates/) and the script
// and stylesheet it loads (static/).
//
//go:embed templates static
var Files embed.FS
