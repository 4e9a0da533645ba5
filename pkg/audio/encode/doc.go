// ABOUTME: Audio encoder package for capture frames
// ABOUTME: Provides Encoder interface and the base64 PCM implementation
// Package encode turns captured float frames into wire chunks.
//
// Supports: 16-bit little-endian PCM, base64 text encoded
//
// Samples are clamped to [-1, 1] and quantized with
// round(sample * 32767). The chunk carries a MIME hint such as
// "audio/pcm;rate=16000".
//
// Example:
//
//	encoder, err := encode.NewPCM(16000, 1, 256)
//	chunk, err := encoder.Encode(frame)
package encode
