// Package web holds the single-page chat client served at "/".
package web

import _ "embed"

// ModelPlaceholder is replaced with the configured model name when the page is served.
const ModelPlaceholder = "%MODEL%"

//go:embed index.html
var IndexHTML string
