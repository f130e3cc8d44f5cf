package scaler

// AspectTolerance keeps standard sized framebuffers unscaled when their
// aspect ratio is within 2% of the screen.
const AspectTolerance = 0.02

// MaxDimensions returns the largest size with the aspect ratio of an
// origW x origH source, whose pixels are xpy wide per unit of height, that
// fits a scrW x scrH screen of physical size widthMM x heightMM.
// A zero physical size means square pixels.
func MaxDimensions(origW, origH uint32, xpy float64, scrW, scrH, widthMM, heightMM uint32) (w, h uint32) {
	w, h = scrW, scrH
	if origW == 0 || origH == 0 {
		return w, h
	}

	if widthMM == 0 || heightMM == 0 {
		widthMM, heightMM = scrW, scrH
	}

	xFactor := float64(origW) * xpy * float64(heightMM)
	yFactor := float64(origH) * float64(widthMM)

	switch {
	case xFactor < yFactor*(1-AspectTolerance):
		w = uint32(xFactor*float64(w)/yFactor + 0.5)
	case xFactor*(1-AspectTolerance) > yFactor:
		h = uint32(yFactor*float64(h)/xFactor + 0.5)
	}
	return w, h
}
