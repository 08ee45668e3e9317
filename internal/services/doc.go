// Package services defines shared utilities consumed by the review engines and
// their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request correlation IDs, media paths, and batch
//     job IDs for logging.
//   - Sentinel error markers plus the Wrap helper so every failure carries a
//     stable classification that the HTTP layer and the batch pipeline can turn
//     into an error code.
//
// Use these helpers when wiring new components so error reporting and
// observability stay uniform across scan, action, artifact, and AI paths.
package services
