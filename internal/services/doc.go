// Package services defines shared utilities consumed by the job pipeline and
// the external speech providers.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation, not-found, provider, timeout, composition) so callers can
//     decide between an immediate request error and a failed job.
//   - Context helpers that stamp job and correlation identifiers for logging.
//   - The bounded Poll loop used by submit-then-poll provider clients.
package services
