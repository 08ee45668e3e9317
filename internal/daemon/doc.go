// Package daemon coordinates the long-running CamReview process.
//
// It wires configuration, the media root, the review ledger, the action
// journal, the artifact service, and the vision classifier into a single
// lifecycle and exposes them over the HTTP API. The ledger lock prevents two
// processes from writing the same ledger.
//
// Keep orchestration logic here: review, artifact, and enrichment behaviour
// lives in the respective packages while the daemon focuses on construction,
// startup, shutdown, and transport.
package daemon
