// Package config loads, normalizes, and validates CamReview configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CAMREVIEW_DATA_PATH and OPENROUTER_API_KEY. Ledger and journal locations
// default to files under the media root so a single directory carries the
// whole review state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
