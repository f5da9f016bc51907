// Package voice models the per-request JSON configuration for speech
// generation: named role voices, gender fallback roles, and the external
// provider connection settings, plus the resolver that maps a segment's
// speaker and gender onto a role.
package voice
