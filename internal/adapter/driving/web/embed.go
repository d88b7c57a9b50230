package web

import "embed"

// StaticFS holds the embedded stylesheet and help text.
//
//go:embed static/*
var StaticFS embed.FS

// helpMarkdown is rendered on the review page.
//
//go:embed static/help.md
var helpMarkdown string
