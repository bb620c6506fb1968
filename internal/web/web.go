// Package web embeds the built frontend so the binary is
// self-contained.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// Assets returns the frontend filesystem rooted at dist/.
func Assets() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
