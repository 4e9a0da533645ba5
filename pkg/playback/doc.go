// ABOUTME: Package playback schedules decoded audio gaplessly
// ABOUTME: on an output device clock and handles interruption

// Package playback turns a bursty stream of decoded buffers into
// continuous audio. Each buffer starts exactly where the previous one
// ends, or at the device's current time if the scheduler fell idle.
//
// Example:
//
//	mixer := output.NewMixer(24000, 1, nil)
//	sched := playback.NewScheduler(mixer)
//
//	src, err := sched.Enqueue(buf)
//	...
//	stopped := sched.Interrupt()
package playback
