// Package daemon runs the voiceforged service: single-instance locking and
// the HTTP API over the job coordinator and transcript store.
package daemon
