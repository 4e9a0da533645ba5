// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Stateless per-chunk conversion plus a streaming Resampler
package resample

import "math"

// Linear converts one channel of samples from inputRate to outputRate
// using linear interpolation. The output length is
// round(len(input) * outputRate / inputRate). It keeps no state, so
// chunks may be converted concurrently.
func Linear(input []float32, inputRate, outputRate int) []float32 {
	if len(input) == 0 || inputRate <= 0 || outputRate <= 0 {
		return nil
	}
	if inputRate == outputRate {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	outLen := int(math.Round(float64(len(input)) * float64(outputRate) / float64(inputRate)))
	if outLen == 0 {
		outLen = 1
	}

	ratio := float64(inputRate) / float64(outputRate)
	out := make([]float32, outLen)
	last := len(input) - 1

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = input[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = input[idx]*(1-frac) + input[idx+1]*frac
	}

	return out
}

// Resampler performs streaming linear interpolation across chunk
// boundaries. It carries the last input frame and the fractional read
// position between calls. Not safe for concurrent use.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	lastFrame  []float32
	hasLast    bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels <= 0 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastFrame:  make([]float32, channels),
	}
}

// Resample converts interleaved input at inputRate to interleaved output
// at outputRate.
func (r *Resampler) Resample(input []float32) []float32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return nil
	}

	// Prepend the carried frame so interpolation spans the chunk boundary
	ext := input[:inputFrames*r.channels]
	if r.hasLast {
		ext = make([]float32, 0, (inputFrames+1)*r.channels)
		ext = append(ext, r.lastFrame...)
		ext = append(ext, input[:inputFrames*r.channels]...)
	}
	extFrames := len(ext) / r.channels

	output := make([]float32, 0, r.OutputSamplesNeeded(len(input))+r.channels)
	for r.position < float64(extFrames-1) {
		idx := int(r.position)
		frac := float32(r.position - float64(idx))
		for ch := 0; ch < r.channels; ch++ {
			s1 := ext[idx*r.channels+ch]
			s2 := ext[(idx+1)*r.channels+ch]
			output = append(output, s1*(1-frac)+s2*frac)
		}
		r.position += r.ratio
	}

	// Rebase position onto the last frame, which becomes the carry
	r.position -= float64(extFrames - 1)
	copy(r.lastFrame, ext[(extFrames-1)*r.channels:])
	r.hasLast = true

	return output
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.hasLast = false
	for i := range r.lastFrame {
		r.lastFrame[i] = 0
	}
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}
