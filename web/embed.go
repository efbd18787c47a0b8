package web

import "embed"

// Templates embeds email templates.
//
//go:embed templates/mail/*
var Templates embed.FS
