package compose

// MaxMaskedLayers is the number of layers the composable mask can track.
// Layers past it are never composable.
const MaxMaskedLayers = 64

// LayerStatistics summarizes a display's layer list for one frame.
type LayerStatistics struct {
	Count       int // layers, framebuffer targets excluded
	Framebuffer int // framebuffer targets

	Composable int
	Scaled     int
	RGB, BGR   int
	NV12       int
	Dockable   int
	Protected  int

	Mem1D uint32 // bytes

	// bit i is set when layer i is composable
	ComposableMask uint64
}

func (s *LayerStatistics) Clear() {
	*s = LayerStatistics{}
}

// IsComposable reports whether layer i was found composable.
func (s *LayerStatistics) IsComposable(i int) bool {
	return i >= 0 && i < MaxMaskedLayers && s.ComposableMask&(1<<uint(i)) != 0
}

// Add accounts layer i. composable is the result of the base composability
// test, scaled whether the layer will need a scaling pipeline.
func (s *LayerStatistics) Add(i int, l *Layer, composable, scaled bool) {
	if l.FramebufferTarget {
		s.Framebuffer++
	} else {
		s.Count++
	}

	if !composable || i >= MaxMaskedLayers {
		return
	}

	s.Composable++
	if scaled || l.Scaled() || l.NV12() {
		s.Scaled++
	}

	switch {
	case l.BGR():
		s.BGR++
	case l.RGB():
		s.RGB++
	case l.NV12():
		s.NV12++
	}

	if l.Dockable() {
		s.Dockable++
	}
	if l.Protected() {
		s.Protected++
	}

	s.Mem1D += l.Mem1D()
	s.ComposableMask |= 1 << uint(i)
}
