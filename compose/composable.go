package compose

import (
	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/scaler"
)

// Wide 32 bpp sources cannot be downscaled more than this on one pipeline.
const (
	wideSourceWidth     = 1280
	wideSourceDownscale = 3
)

// IsComposable is the base test for a layer to be shown on a pipeline of
// the display described by info, before any policy is applied.
func IsComposable(l *Layer, info *hwcomp.DisplayInfo, limits *hwcomp.PlatformLimits) bool {
	if l.Skip || l.Buffer == nil || l.FramebufferTarget {
		return false
	}

	f := l.Buffer.Format
	if !f.Valid() {
		return false
	}

	// 1D buffers cannot be transformed and must fit the slot
	if !f.IsNV12() {
		if l.Transform != 0 {
			return false
		}
		if l.Mem1D() > limits.Tiler1DSlotSize {
			return false
		}
	}

	return canScaleLayer(l, info, limits)
}

func canScaleLayer(l *Layer, info *hwcomp.DisplayInfo, limits *hwcomp.PlatformLimits) bool {
	srcW, srcH := l.SourceCrop.W(), l.SourceCrop.H()
	dstW, dstH := l.DisplayFrame.W(), l.DisplayFrame.H()
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return false
	}

	if l.Buffer.Format.BPP() == 32 && srcW > wideSourceWidth && dstW*wideSourceDownscale < srcW {
		return false
	}

	srcW, srcH = l.sourceSize()
	return scaler.CanScale(uint32(srcW), uint32(srcH), uint32(dstW), uint32(dstH),
		l.NV12(), info, limits, info.Timings.PixelClock)
}
