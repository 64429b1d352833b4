// Package logging provides opt-in file-based logging with rotation for sitesearch.
// When the --debug flag is set, logs are written to ~/.sitesearch/logs/ so that
// long reindex runs can be inspected afterwards with `sitesearch logs`.
//
// Without --debug, logging goes to stderr only.
package logging
