// ABOUTME: Audio decoder package for inbound chunks
// ABOUTME: Provides Decoder interface and the base64 PCM implementation
// Package decode provides the chunk decoder for received audio.
//
// Supports: base64 16-bit little-endian PCM ("audio/pcm" hints)
//
// The decoder reframes to the requested channel count and linearly
// resamples to the requested rate. It carries no state between chunks,
// so several chunks can be decoded concurrently.
//
// Example:
//
//	var d decode.PCMDecoder
//	buf, err := d.Decode(chunk, 24000, 1)
package decode
