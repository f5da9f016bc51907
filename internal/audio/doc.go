// Package audio provides the in-memory PCM clip model shared by the mock
// synthesizer and the timeline compositor: wav and mp3 decoding, wav encoding,
// container sniffing, resampling, and sample-level mixing.
package audio
