// Package logging builds the slog loggers used across photomaton and
// standardizes the structured field vocabulary (component, photo_id, job_id,
// provider, event_type) so log streams stay greppable.
package logging
