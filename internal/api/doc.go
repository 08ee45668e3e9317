// Package api defines wire-format types and converters for the HTTP API
// layer. It translates catalog entries, action results, detection results, and
// batch jobs into transport-friendly DTOs that the browser UI and the CLI can
// render without coupling to internal types.
//
// # Key Types
//
// LibraryItem: a scanned media file merged with its review record.
//
// ItemsResponse/LibraryResponse: item lists with review counts.
//
// ActionResponse/UndoResponse: outcomes of review decisions.
//
// DetectResponse/BatchJob: animal detection results and batch progress.
//
// StatusResponse: dependency, model, and undo state for health displays.
//
// # Converters
//
// FromEntry: review.Entry -> LibraryItem.
//
// FromJob: enrich.Job -> BatchJob.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript consumers. Timestamps use RFC3339
// with milliseconds and are omitted when unset. Every response carries an ok
// flag; failures use ErrorResponse with a stable snake_case code.
package api
