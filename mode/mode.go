package mode

import (
	"github.com/NeowayLabs/hwcomp"
	"github.com/cockroachdb/errors"
)

type (
	// Database is the mode database of one display together with the
	// display information it was queried with.
	Database struct {
		Info  hwcomp.DisplayInfo
		Modes []hwcomp.VideoMode
	}
)

// Query reads the display information and the mode database of the
// display attached to manager ix.
func Query(drv hwcomp.Driver, ix int) (*Database, error) {
	info, err := drv.DisplayInfo(ix)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot retrieve display %d", ix)
	}

	modes, err := drv.ModeDatabase(ix, hwcomp.MaxModeDBLength)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot retrieve modes of display %d", ix)
	}

	return &Database{
		Info:  info,
		Modes: modes,
	}, nil
}

// Aspect returns the physical aspect of mode: 4:3 or 16:9 for CEA modes,
// the size of the display otherwise.
func (db *Database) Aspect(mode *hwcomp.VideoMode) (width, height uint32) {
	switch {
	case mode.Flag&hwcomp.FlagRatio4x3 != 0:
		return 4, 3
	case mode.Flag&hwcomp.FlagRatio16x9 != 0:
		return 16, 9
	}
	return db.Info.WidthMM, db.Info.HeightMM
}

// IsCEA reports whether mode carries a CEA aspect ratio flag.
func IsCEA(mode *hwcomp.VideoMode) bool {
	return mode.Flag&(hwcomp.FlagRatio4x3|hwcomp.FlagRatio16x9) != 0
}
