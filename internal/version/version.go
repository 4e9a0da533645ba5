// ABOUTME: Build version information
// ABOUTME: Product identity reported in logs and the TUI header
package version

// Version is overridden at build time with -ldflags "-X ..."
var Version = "0.1.0"

const (
	Product      = "LiveVoice"
	Manufacturer = "LiveVoice"
)

// String returns "<product> <version>"
func String() string {
	return Product + " " + Version
}
