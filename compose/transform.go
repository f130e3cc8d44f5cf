package compose

import (
	"math"

	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/scaler"
	"golang.org/x/image/math/f64"
)

// Transform maps primary framebuffer coordinates onto a display.
type Transform struct {
	Rotation int // 90 degree steps, clockwise
	HFlip    bool

	// Scaling is set when pipelines have to be mapped through Matrix.
	Scaling bool
	// Region is the part of the framebuffer that is shown.
	Region Rect
	Matrix f64.Aff3
}

var unitMatrix = f64.Aff3{
	1, 0, 0,
	0, 1, 0,
}

func translateMatrix(m *f64.Aff3, dx, dy float64) {
	m[2] += dx
	m[5] += dy
}

func scaleMatrix(m *f64.Aff3, xFrom, xTo, yFrom, yTo float64) {
	for i := 0; i < 3; i++ {
		m[i] = m[i] * xTo / xFrom
		m[3+i] = m[3+i] * yTo / yFrom
	}
}

func rotateMatrix(m *f64.Aff3, quarterTurns int) {
	if quarterTurns&2 != 0 {
		scaleMatrix(m, 1, -1, 1, -1)
	}
	if quarterTurns&1 != 0 {
		for i := 0; i < 3; i++ {
			m[i], m[3+i] = -m[3+i], m[i]
		}
	}
}

// primaryTransform maps a fbW x fbH framebuffer onto a lcdW x lcdH panel,
// rotating it when the orientations differ.
func primaryTransform(fbW, fbH, lcdW, lcdH int) Transform {
	t := Transform{
		Region:  Rect{Right: fbW, Bottom: fbH},
		Scaling: lcdW != fbW || lcdH != fbH,
		Matrix:  unitMatrix,
	}
	if (lcdW > lcdH) != (fbW > fbH) {
		t.Rotation = 1
	}

	translateMatrix(&t.Matrix, -float64(fbW>>1), -float64(fbH>>1))
	rotateMatrix(&t.Matrix, t.Rotation)

	w, h := fbW, fbH
	if t.Rotation&1 != 0 {
		w, h = h, w
	}
	scaleMatrix(&t.Matrix, float64(w), float64(lcdW), float64(h), float64(lcdH))
	translateMatrix(&t.Matrix, float64(lcdW>>1), float64(lcdH>>1))
	return t
}

// externalMatrix builds the matrix that centers region, rotated and flipped
// as t says, in a xres x yres output of physical size widthMM x heightMM,
// keeping the xpy pixel aspect of the primary display. It returns the size
// the region takes on the output.
func externalMatrix(t *Transform, xpy float64, xres, yres int, widthMM, heightMM uint32) (adjW, adjH uint32) {
	region := t.Region
	w, h := region.W(), region.H()

	t.Matrix = unitMatrix
	translateMatrix(&t.Matrix, -float64(w)/2-float64(region.Left), -float64(h)/2-float64(region.Top))
	rotateMatrix(&t.Matrix, t.Rotation)
	if t.HFlip {
		scaleMatrix(&t.Matrix, 1, -1, 1, 1)
	}

	if t.Rotation&1 != 0 {
		w, h = h, w
		xpy = 1 / xpy
	}

	adjW, adjH = scaler.MaxDimensions(uint32(w), uint32(h), xpy, uint32(xres), uint32(yres), widthMM, heightMM)
	scaleMatrix(&t.Matrix, float64(w), float64(adjW), float64(h), float64(adjH))
	translateMatrix(&t.Matrix, float64(xres>>1), float64(yres>>1))
	return adjW, adjH
}

// cropToRect clips the window of p to vis and crops its source by the same
// amount. It returns false when nothing of p remains visible.
func cropToRect(vis Rect, p *hwcomp.PipelineSetup) bool {
	winXY := [2]int{p.Window.X, p.Window.Y}
	winWH := [2]int{p.Window.W, p.Window.H}
	cropXY := [2]int{p.Crop.X, p.Crop.Y}
	cropWH := [2]int{p.Crop.W, p.Crop.H}
	lt := [2]int{vis.Left, vis.Top}
	rb := [2]int{vis.Right, vis.Bottom}

	flip := func(c int) {
		cropWH[c] = -cropWH[c]
		cropXY[c] -= cropWH[c]
	}

	s := int(p.Rotation & 1)
	mirrored := !p.Mirror != (p.Rotation&2 == 0)

	// crop in display orientation
	if s == 1 {
		flip(1)
	}
	if p.Rotation&2 != 0 {
		flip(1 - s)
	}
	if mirrored {
		flip(s)
	}

	for c := 0; c < 2; c++ {
		cs := c ^ s
		if winWH[c] <= 0 || rb[c] <= lt[c] ||
			winXY[c]+winWH[c] <= lt[c] || winXY[c] >= rb[c] ||
			cropWH[cs] == 0 {
			return false
		}

		if winXY[c] < lt[c] {
			a := (lt[c] - winXY[c]) * cropWH[cs] / winWH[c]
			cropXY[cs] += a
			cropWH[cs] -= a
			winWH[c] -= lt[c] - winXY[c]
			winXY[c] = lt[c]
		}

		if winXY[c]+winWH[c] > rb[c] {
			cropWH[cs] = cropWH[cs] * (rb[c] - winXY[c]) / winWH[c]
			winWH[c] = rb[c] - winXY[c]
		}

		if cropWH[cs] == 0 || winWH[c] == 0 {
			return false
		}
	}

	// back to buffer orientation
	if p.Rotation&2 != 0 {
		flip(1 - s)
	}
	if mirrored {
		flip(s)
	}
	if s == 1 {
		flip(1)
	}

	p.Window = hwcomp.Window{X: winXY[0], Y: winXY[1], W: winWH[0], H: winWH[1]}
	p.Crop = hwcomp.Window{X: cropXY[0], Y: cropXY[1], W: cropWH[0], H: cropWH[1]}
	return true
}

func round(v float64) int { return int(math.Floor(v + 0.5)) }

// transformPipeline maps the window of p through m. Rounding errors of the
// position are absorbed by the size.
func transformPipeline(m f64.Aff3, p *hwcomp.PipelineSetup) {
	wx, wy := float64(p.Window.X), float64(p.Window.Y)
	ww, wh := float64(p.Window.W), float64(p.Window.H)

	x := m[0]*wx + m[1]*wy + m[2]
	y := m[3]*wx + m[4]*wy + m[5]
	w := m[0]*ww + m[1]*wh
	h := m[3]*ww + m[4]*wh

	if w > 0 {
		p.Window.X = round(x)
		w += x - float64(p.Window.X)
	} else {
		p.Window.X = round(x + w)
		w += float64(p.Window.X) - (x + w)
	}
	if h > 0 {
		p.Window.Y = round(y)
		h += y - float64(p.Window.Y)
	} else {
		p.Window.Y = round(y + h)
		h += float64(p.Window.Y) - (y + h)
	}

	p.Window.W = round(math.Abs(w))
	p.Window.H = round(math.Abs(h))
}

// adjustToDisplay crops p to the region shown by t and maps it onto the
// display. Pipelines left with nothing to show are disabled.
func adjustToDisplay(t *Transform, p *hwcomp.PipelineSetup) {
	if !cropToRect(t.Region, p) {
		p.Enabled = false
		return
	}

	transformPipeline(t.Matrix, p)

	// F^a*R^b*F^i*R^j = F^(a+b)*R^(j+b*(-1)^i), because F*R = R^(-1)*F
	rot := int(p.Rotation)
	if p.Mirror {
		rot -= t.Rotation
	} else {
		rot += t.Rotation
	}
	p.Rotation = uint8(rot & 3)
	if t.HFlip {
		p.Mirror = !p.Mirror
	}
}
