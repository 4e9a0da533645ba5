// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines EncodedChunk, DecodedBuffer and sample conversion functions
// Package audio provides the audio types shared by the LiveVoice pipeline.
//
// This package defines core types used throughout the library:
//   - EncodedChunk: base64 PCM plus a MIME hint, as carried on the message channel
//   - DecodedBuffer: per-channel float32 audio ready for scheduling
//
// It also provides sample conversions:
//   - float32 ↔ int16 (wire quantization)
//   - float32 → unsigned byte (analysis time-domain data)
//
// Example:
//
//	buf := audio.NewDecodedBuffer([][]float32{samples}, audio.OutputSampleRate)
//	fmt.Println(buf.Duration)
package audio
