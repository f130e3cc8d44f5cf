// Package scaler decides whether the overlay scaler can produce a
// destination rectangle from a source rectangle.
package scaler

import (
	"github.com/NeowayLabs/hwcomp"
	"golang.org/x/exp/constraints"
)

// Empirical downscale floors. They are tighter than what the hardware
// advertises because larger ratios showed artifacts on screen.
const (
	VerticalDownscaleFloor   = 4
	HorizontalDownscaleFloor = 4
)

func ceilDiv[T constraints.Integer](n, d T) T {
	return (n + d - 1) / d
}

func decimation(limits *hwcomp.PlatformLimits, is2D bool) (x, y uint32) {
	if is2D {
		return limits.MaxXDecim2D, limits.MaxYDecim2D
	}
	return limits.MaxXDecim1D, limits.MaxYDecim1D
}

// CanScale reports whether a srcW x srcH source can be scaled to dstW x dstH
// on the display described by info. is2D selects the 2D (tiled) decimation
// limits. pclk is the pixel clock of the target mode in kHz, 0 for self
// clocked panels which have no clock based limit.
//
// Limits with a zero downscale or decimation factor never scale.
func CanScale(srcW, srcH, dstW, dstH uint32, is2D bool, info *hwcomp.DisplayInfo, limits *hwcomp.PlatformLimits, pclk uint32) bool {
	xdecim, ydecim := decimation(limits, is2D)
	if xdecim == 0 || ydecim == 0 || limits.MaxDownscale == 0 {
		return false
	}

	fclk := uint64(limits.FClk / 1000)
	minSrcW := ceilDiv(srcW, xdecim)
	minSrcH := ceilDiv(srcH, ydecim)

	// panels cannot render 1 pixel wide layers
	if !info.IsTV() && dstW < limits.MinWidth {
		return false
	}

	if dstH < srcH/VerticalDownscaleFloor {
		return false
	}

	if uint64(dstH)*uint64(limits.MaxDownscale) < uint64(minSrcH) {
		return false
	}

	if pclk == 0 {
		return dstW >= srcW/limits.MaxDownscale/xdecim
	}

	if uint64(dstW)*HorizontalDownscaleFloor < uint64(srcW) {
		return false
	}

	p := uint64(pclk)
	if fclk > p*uint64(limits.MaxDownscale) {
		fclk = p * uint64(limits.MaxDownscale)
	}

	// small sources need an integer fclk/pclk ratio
	if srcW < limits.IntegerScaleRatioLimit {
		fclk = fclk / p * p
	}

	return uint64(dstW)*fclk >= uint64(minSrcW)*p
}
