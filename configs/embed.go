// Package configs provides embedded configuration templates for sitesearch.
//
// Templates are embedded at build time so they ship with every binary.
// They are used by:
//   - cmd/sitesearch/cmd/init.go, which writes .sitesearch.yaml
//   - cmd/sitesearch/cmd/config.go, which writes ~/.config/sitesearch/config.yaml
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/sitesearch/config.yaml)
//  3. Project config (.sitesearch.yaml)
//  4. Environment variables (SITESEARCH_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for machine-level configuration.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for project-level configuration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
