// Package main hosts the CamReview CLI entrypoint and command graph.
//
// The Cobra-based command tree starts the HTTP server, inspects the media
// root and ledger, runs batch classification in-process, checks external
// dependencies, prints the action journal, and scaffolds configuration. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on output.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
