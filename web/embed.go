// Package web bundles the dashboard templates and static assets into the binary.
package web

import "embed"

// TemplatesFS holds the server-rendered dashboard pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the clock script under static/.
//
//go:embed static/*
var StaticFS embed.FS
