package compose

import "github.com/NeowayLabs/hwcomp/mode"

// Capture mode limits of the writeback engine, source size over output size.
const (
	WritebackMaxUpscale      = 1.0
	WritebackMaxDownscale    = 0.5
	WritebackAspectTolerance = 0.15
)

const (
	WritebackCapture WritebackMode = iota
	WritebackMemToMem
)

type (
	WritebackMode int

	// MirroringState pairs the external display with the primary while it
	// clones it.
	MirroringState struct {
		Enabled         bool
		AvoidModeChange bool

		// last mode selection, Index is mode.NoMode when the timings in use
		// were kept
		Modeset mode.Modeset

		Writeback WritebackMode
	}
)

func (m WritebackMode) String() string {
	if m == WritebackCapture {
		return "capture"
	}
	return "mem2mem"
}

// ComputeCaptureMode picks capture mode for near 1:1 uniform scaling of a
// srcW x srcH source to a dstW x dstH output, memory to memory otherwise.
func ComputeCaptureMode(srcW, srcH, dstW, dstH uint32) WritebackMode {
	if srcW == 0 || srcH == 0 || dstW == 0 || dstH == 0 {
		return WritebackMemToMem
	}

	xScale := float64(srcW) / float64(dstW)
	yScale := float64(srcH) / float64(dstH)

	if xScale > WritebackMaxUpscale || yScale > WritebackMaxUpscale ||
		xScale < WritebackMaxDownscale || yScale < WritebackMaxDownscale ||
		xScale < yScale*(1-WritebackAspectTolerance) ||
		xScale*(1-WritebackAspectTolerance) > yScale {
		return WritebackMemToMem
	}
	return WritebackCapture
}

// DecideCaptureMode is ComputeCaptureMode with the memory to memory
// override applied. Switching modes at runtime is not supported yet, so the
// override is on by default.
func DecideCaptureMode(srcW, srcH, dstW, dstH uint32, forceMemToMem bool) WritebackMode {
	if forceMemToMem {
		return WritebackMemToMem
	}
	return ComputeCaptureMode(srcW, srcH, dstW, dstH)
}

// SelectWriteback records the writeback mode for the current mirroring
// geometry and reports whether it changed.
func (s *MirroringState) SelectWriteback(srcW, srcH, dstW, dstH uint32, forceMemToMem bool) bool {
	m := DecideCaptureMode(srcW, srcH, dstW, dstH, forceMemToMem)
	changed := m != s.Writeback
	s.Writeback = m
	return changed
}
