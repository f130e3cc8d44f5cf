package mode

import (
	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/scaler"
	"github.com/cockroachdb/errors"
)

// TargetRefresh is the frame rate the UI is rendered at.
const TargetRefresh = 60

// NoMode is the Modeset index used when the display timings in use are kept.
const NoMode = -1

var (
	ErrInvalidSize = errors.New("invalid display or source size")
	ErrNoMode      = errors.New("no display mode can show the source")
)

type (
	// Target is what has to be shown on the display.
	Target struct {
		XRes, YRes uint32
		XPY        float64 // source pixel aspect, 1 for square pixels

		Current         int // mode in use, NoMode if none
		AvoidModeChange bool
	}

	// Modeset is the selected mode and the size the source is scaled to
	// within it.
	Modeset struct {
		Index int
		Mode  hwcomp.VideoMode
		Score uint32

		// physical aspect used for the choice
		Width, Height uint32

		AdjXRes, AdjYRes uint32
	}
)

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// scalingScore appends the scaling preferences of a candidate to score:
// upscaling, least scaling, least unused area, same or higher refresh and
// closest refresh, most significant first.
func scalingScore(score uint32, xres, yres, refresh, extXRes, extYRes, modeXRes, modeYRes, modeRefresh uint32) uint32 {
	area := xres * yres
	extArea := extXRes * extYRes
	modeArea := modeXRes * modeYRes

	// upscale with 1% tolerance, inserted after the first bit
	upscale := b2u(extXRes >= xres*99/100 && extYRes >= yres*99/100)
	score = (((score &^ 1) | upscale) << 1) | (score & 1)

	if extArea > area {
		score = (score << 5) | (16 * area / extArea)
	} else {
		score = (score << 5) | (16 * extArea / area)
	}

	score = (score << 5) | ((16*extArea + (modeArea >> 1)) / modeArea)

	// 59.94 style rates are reported one below
	if modeRefresh%6 == 5 {
		modeRefresh++
	}

	score = (score << 1) | b2u(modeRefresh >= refresh)

	if modeRefresh > refresh {
		score = (score << 8) | (240 * refresh / modeRefresh)
	} else {
		score = (score << 8) | (240 * modeRefresh / refresh)
	}
	return score
}

// Best picks the mode of db that shows t best. Modes that the scaler
// cannot reach from t are skipped. When no mode qualifies the current
// display timings are checked and returned with Index NoMode.
func Best(db *Database, limits *hwcomp.PlatformLimits, t Target) (Modeset, error) {
	info := &db.Info
	if info.Timings.XRes*info.Timings.YRes == 0 || t.XRes*t.YRes == 0 {
		return Modeset{}, errors.Wrapf(ErrInvalidSize, "display %dx%d, source %dx%d",
			info.Timings.XRes, info.Timings.YRes, t.XRes, t.YRes)
	}

	best := Modeset{Index: NoMode}
	for i := range db.Modes {
		mode := &db.Modes[i]
		modeXRes, modeYRes := mode.XRes, mode.YRes
		if mode.Interlaced() {
			modeYRes /= 2
		}
		if modeXRes == 0 || modeYRes == 0 {
			continue
		}

		width, height := db.Aspect(mode)
		adjXRes, adjYRes := scaler.MaxDimensions(t.XRes, t.YRes, t.XPY, modeXRes, modeYRes, width, height)

		// even 2D buffers have to be scalable
		if mode.PixClock == 0 || mode.VMode&^hwcomp.VModeInterlaced != 0 ||
			!scaler.CanScale(t.XRes, t.YRes, adjXRes, adjYRes, true, info, limits, mode.PixelClock()) {
			continue
		}

		score := b2u(IsCEA(mode))
		score = (score << 1) | b2u(i == t.Current && t.AvoidModeChange)

		refresh := mode.Refresh
		if refresh == 0 {
			refresh = 1
		}
		score = scalingScore(score, t.XRes, t.YRes, TargetRefresh, adjXRes, adjYRes, modeXRes, modeYRes, refresh)

		if best.Score < score {
			best = Modeset{
				Index:   i,
				Mode:    *mode,
				Score:   score,
				Width:   width,
				Height:  height,
				AdjXRes: adjXRes,
				AdjYRes: adjYRes,
			}
		}
	}

	if best.Index != NoMode {
		return best, nil
	}

	adjXRes, adjYRes := scaler.MaxDimensions(t.XRes, t.YRes, t.XPY,
		info.Timings.XRes, info.Timings.YRes, info.WidthMM, info.HeightMM)
	if info.Timings.PixelClock == 0 ||
		!scaler.CanScale(t.XRes, t.YRes, adjXRes, adjYRes, true, info, limits, info.Timings.PixelClock) {
		return Modeset{}, errors.Wrapf(ErrNoMode, "source %dx%d", t.XRes, t.YRes)
	}

	return Modeset{
		Index:   NoMode,
		Width:   info.WidthMM,
		Height:  info.HeightMM,
		AdjXRes: adjXRes,
		AdjYRes: adjYRes,
	}, nil
}
