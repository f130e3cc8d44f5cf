package compose

// Pipelines fetch rows aligned to this many pixels.
const hwAlign = 32

// Layer transform bits, applied flip first then rotation.
const (
	FlipH LayerTransform = 1 << iota
	FlipV
	Rot90

	Rot180 = FlipH | FlipV
	Rot270 = Rot180 | Rot90
)

const (
	BlendingNone Blending = iota
	BlendingPremult
	BlendingCoverage
)

const (
	// UsageProtected buffers cannot be read back by the GPU.
	UsageProtected Usage = 1 << iota
	// UsageExternalDisplay buffers are meant for the external display.
	UsageExternalDisplay
)

type (
	LayerTransform uint32
	Blending       int
	Usage          uint32

	// Rect is a rectangle with exclusive right and bottom edges.
	Rect struct {
		Left, Top, Right, Bottom int
	}

	// Buffer describes the buffer a layer shows.
	Buffer struct {
		Format        Format
		Width, Height int
		Usage         Usage
	}

	// Layer is one surface of a display's layer list. Layers are read only
	// to the planner.
	Layer struct {
		Buffer *Buffer // nil for layers without content

		// Skip layers are always composed by the GPU.
		Skip bool
		// FramebufferTarget marks the layer the GPU composes into.
		FramebufferTarget bool

		Transform    LayerTransform
		Blending     Blending
		SourceCrop   Rect
		DisplayFrame Rect
	}
)

func (r Rect) W() int { return r.Right - r.Left }
func (r Rect) H() int { return r.Bottom - r.Top }

func align(v, a int) int { return (v + a - 1) / a * a }

func (l *Layer) format() Format {
	if l.Buffer == nil {
		return 0
	}
	return l.Buffer.Format
}

func (l *Layer) NV12() bool    { return l.format().IsNV12() }
func (l *Layer) RGB() bool     { return l.format().IsRGB() }
func (l *Layer) BGR() bool     { return l.format().IsBGR() }
func (l *Layer) Blended() bool { return l.Blending != BlendingNone }

func (l *Layer) Protected() bool {
	return l.Buffer != nil && l.Buffer.Usage&UsageProtected != 0
}

func (l *Layer) Dockable() bool {
	return l.Buffer != nil && l.Buffer.Usage&UsageExternalDisplay != 0
}

// sourceSize is the source crop size in display orientation.
func (l *Layer) sourceSize() (w, h int) {
	w, h = l.SourceCrop.W(), l.SourceCrop.H()
	if l.Transform&Rot90 != 0 {
		w, h = h, w
	}
	return w, h
}

// Scaled reports whether the layer is shown at a size other than its crop.
func (l *Layer) Scaled() bool {
	w, h := l.sourceSize()
	return l.DisplayFrame.W() != w || l.DisplayFrame.H() != h
}

// UpscaledNV12 reports NV12 layers enlarged by at least limit on one axis.
func (l *Layer) UpscaledNV12(limit float64) bool {
	if !l.NV12() {
		return false
	}
	w, h := l.sourceSize()
	return float64(l.DisplayFrame.W()) >= float64(w)*limit ||
		float64(l.DisplayFrame.H()) >= float64(h)*limit
}

// Mem1D is the size in bytes the layer needs in the 1D buffer slot.
// NV12 buffers live in 2D memory and need none.
func (l *Layer) Mem1D() uint32 {
	if l.Buffer == nil || l.NV12() {
		return 0
	}
	bpp := 4
	if l.Buffer.Format == FormatRGB565 {
		bpp = 2
	}
	return uint32(align(l.Buffer.Width, hwAlign) * bpp * l.Buffer.Height)
}
