// ABOUTME: Package capture pulls microphone frames and forwards them
// ABOUTME: encoded to a sink while recording

// Package capture implements the capture loop: it opens an input device,
// reads fixed-size frames, feeds the input analysis tap, encodes each
// frame and forwards it to a Sink while recording is enabled.
//
// Example:
//
//	loop, err := capture.New(capture.Config{
//		Source:     capture.NewPortAudio(),
//		Sink:       channel,
//		Encoder:    enc,
//		SampleRate: 16000,
//		FrameSize:  256,
//	})
//	if err := loop.Start(ctx); err != nil {
//		...
//	}
//	defer loop.Stop()
package capture
