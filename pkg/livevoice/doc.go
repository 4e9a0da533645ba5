// ABOUTME: Package livevoice wires capture, playback and visualization
// ABOUTME: into one bidirectional voice session

// Package livevoice provides the session controller: it connects the
// message channel, captures and sends microphone audio while recording,
// schedules received audio for gapless playback, and keeps the input and
// output waveforms flowing to a display surface.
//
// Example:
//
//	session, err := livevoice.New(livevoice.Config{
//		ServerAddr: "localhost:3000",
//		OnStateChange: func(s livevoice.SessionState) {
//			fmt.Println(s.Status)
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go session.Run(ctx)
//	session.StartRecording(ctx)
package livevoice
