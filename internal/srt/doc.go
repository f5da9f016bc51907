// Package srt parses and composes SubRip subtitle text.
//
// Parsing is best-effort: structurally malformed blocks are skipped rather
// than failing the whole document. Speaker names and optional emotion, tone,
// and gender hints are carried in the cue text using the
// "Name|emotion=happy|tone=warm: dialogue" convention, which the writer emits
// symmetrically so a transcript survives a recognize/re-synthesize round trip.
package srt
