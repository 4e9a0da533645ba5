// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for backends that pull audio from a Mixer
package output

// Output represents an audio backend driving a Mixer's render loop
type Output interface {
	// Open starts pulling audio from the mixer
	Open() error

	// Close stops playback and releases the device
	Close() error
}
