// ABOUTME: Audio output package for scheduled playback
// ABOUTME: Provides the Mixer device clock and Oto/Null backends
// Package output provides the playback device.
//
// Mixer implements Device: buffers are scheduled at absolute times on a
// clock derived from the number of frames rendered, so playback is
// sample accurate regardless of when the backend pulls. Oto pulls the
// mixer through the system audio device; Null pulls it on a wall-clock
// ticker for machines without a sound card.
//
// Example:
//
//	mixer := output.NewMixer(24000, 1, tap)
//	out := output.NewOto(mixer)
//	err := out.Open()
//	h := mixer.Schedule(buf, mixer.Now(), func() { log.Print("done") })
package output
