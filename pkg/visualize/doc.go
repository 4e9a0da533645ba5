// ABOUTME: Package visualize renders live input and output waveforms
// ABOUTME: at display rate onto a drawing surface

// Package visualize polls two analysis samplers on a refresh ticker and
// draws their time-domain data as line paths: input in the upper half,
// output in the lower half. Surface abstracts the drawing target; Canvas
// is a braille terminal implementation.
//
// Example:
//
//	loop := visualize.NewLoop(visualize.Config{
//		Input:  inputSampler,
//		Output: outputSampler,
//		OnFrame: func(s visualize.Surface) {
//			program.Send(frameMsg(s.(*visualize.Canvas).String()))
//		},
//	})
//	loop.Start(ctx, func(ratio float64) visualize.Surface {
//		return visualize.NewCanvas(80, 12)
//	})
//	defer loop.Stop()
package visualize
