// ABOUTME: Drawing surface abstraction for waveform rendering
// ABOUTME: A minimal path-stroking API modeled on 2D canvas contexts
package visualize

// Surface is a 2D drawing target in device pixels
type Surface interface {
	Size() (width, height float64)
	Clear()
	SetStroke(color string, width float64)
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
}

// Waveform colors
const (
	InputColor  = "#00E676"
	OutputColor = "#4DEEEA"
	LineWidth   = 2.0
)
