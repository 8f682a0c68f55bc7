// Package ui provides the embedded web UI for streambridge.
package ui

import (
	_ "embed"
)

// IndexHTML is the single-page UI: paste a media URL, inspect the
// resolved metadata, and queue downloads.
//
//go:embed index.html
var IndexHTML []byte
