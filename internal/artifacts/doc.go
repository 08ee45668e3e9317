// Package artifacts produces and caches derived files under the media root's
// .camreview subtree: preview frame sets and mobile transcodes for videos, plus
// lookup of sidecar preview images.
//
// Registry collapses concurrent requests for the same destination into a single
// generation. Service maps media keys to artifact locations and drives the
// ffmpeg runner through the registry, writing into temporary names that are
// renamed into place only when generation succeeds.
package artifacts
