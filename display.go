package hwcomp

import (
	"unsafe"

	"github.com/NeowayLabs/hwcomp/ioctl"
	"golang.org/x/exp/slog"
)

// MaxModeDBLength is the largest mode database the driver reports.
const MaxModeDBLength = 32

const (
	ChannelLCD Channel = iota
	ChannelDigit
	ChannelLCD2
)

// Mode flags, same values as the fbdev FB_VMODE_* and FB_FLAG_* bits.
const (
	VModeInterlaced = 1

	FlagRatio4x3  = 64
	FlagRatio16x9 = 128
)

type (
	// Channel is the output channel a display manager is routed to.
	// ChannelDigit is the TV (HDMI) output.
	Channel uint32

	sysTimings struct {
		xRes, yRes    uint16
		pixelClock    uint32 // kHz
		hsw, hfp, hbp uint16
		vsw, vfp, vbp uint16
	}

	sysManagerInfo struct {
		ix            uint32
		defaultColor  uint32
		transKeyType  uint32
		transKey      uint32
		transEnabled  uint8
		alphaBlending uint8
		swapRB        uint8
		_             uint8
	}

	sysDisplayInfo struct {
		ix                uint32
		overlaysAvailable uint32
		overlaysOwned     uint32
		typ               uint32
		state             uint32
		channel           uint32
		mgr               sysManagerInfo
		timings           sysTimings
		widthInMM         uint32
		heightInMM        uint32
		modedbLen         uint32 // in: capacity, out: entries written
	}

	sysVideoMode struct {
		name uintptr

		refresh                  uint32
		xres, yres               uint32
		pixclock                 uint32 // ps
		leftMargin, rightMargin  uint32
		upperMargin, lowerMargin uint32
		hsyncLen, vsyncLen       uint32
		sync, vmode, flag        uint32
	}

	// the mode database is written right after the display info
	sysDisplayQuery struct {
		info   sysDisplayInfo
		modedb [MaxModeDBLength]sysVideoMode
	}

	sysSetupDisplay struct {
		ix   uint32
		mode sysVideoMode
	}

	Timings struct {
		XRes, YRes    uint32
		PixelClock    uint32 // kHz, 0 for self clocked panels
		HSW, HFP, HBP uint32
		VSW, VFP, VBP uint32
	}

	// DisplayInfo describes the display attached to a manager.
	DisplayInfo struct {
		Index             int
		Channel           Channel
		OverlaysAvailable uint32
		OverlaysOwned     uint32
		Timings           Timings

		// physical size, 0 when unknown
		WidthMM, HeightMM uint32
	}

	// VideoMode is one entry of a display mode database.
	VideoMode struct {
		Refresh                  uint32
		XRes, YRes               uint32
		PixClock                 uint32 // picoseconds
		LeftMargin, RightMargin  uint32
		UpperMargin, LowerMargin uint32
		HSyncLen, VSyncLen       uint32
		Sync, VMode, Flag        uint32
	}
)

var _ [0]struct{} = [unsafe.Sizeof(sysTimings{}) - 20]struct{}{}

func (c Channel) String() string {
	switch c {
	case ChannelLCD:
		return "lcd"
	case ChannelDigit:
		return "digit"
	case ChannelLCD2:
		return "lcd2"
	}
	return "unknown"
}

// IsTV reports whether the display is driven by the digital (TV) channel.
func (d *DisplayInfo) IsTV() bool { return d.Channel == ChannelDigit }

func (m *VideoMode) Interlaced() bool { return m.VMode&VModeInterlaced != 0 }

// PixelClock returns the pixel clock of the mode in kHz.
func (m *VideoMode) PixelClock() uint32 {
	if m.PixClock == 0 {
		return 0
	}
	return 1000000000 / m.PixClock
}

func (s *sysDisplayInfo) info() DisplayInfo {
	return DisplayInfo{
		Index:             int(s.ix),
		Channel:           Channel(s.channel),
		OverlaysAvailable: s.overlaysAvailable,
		OverlaysOwned:     s.overlaysOwned,
		Timings: Timings{
			XRes:       uint32(s.timings.xRes),
			YRes:       uint32(s.timings.yRes),
			PixelClock: s.timings.pixelClock,
			HSW:        uint32(s.timings.hsw),
			HFP:        uint32(s.timings.hfp),
			HBP:        uint32(s.timings.hbp),
			VSW:        uint32(s.timings.vsw),
			VFP:        uint32(s.timings.vfp),
			VBP:        uint32(s.timings.vbp),
		},
		WidthMM:  s.widthInMM,
		HeightMM: s.heightInMM,
	}
}

func (s *sysVideoMode) mode() VideoMode {
	return VideoMode{
		Refresh:     s.refresh,
		XRes:        s.xres,
		YRes:        s.yres,
		PixClock:    s.pixclock,
		LeftMargin:  s.leftMargin,
		RightMargin: s.rightMargin,
		UpperMargin: s.upperMargin,
		LowerMargin: s.lowerMargin,
		HSyncLen:    s.hsyncLen,
		VSyncLen:    s.vsyncLen,
		Sync:        s.sync,
		VMode:       s.vmode,
		Flag:        s.flag,
	}
}

func newSysVideoMode(m VideoMode) sysVideoMode {
	return sysVideoMode{
		refresh:     m.Refresh,
		xres:        m.XRes,
		yres:        m.YRes,
		pixclock:    m.PixClock,
		leftMargin:  m.LeftMargin,
		rightMargin: m.RightMargin,
		upperMargin: m.UpperMargin,
		lowerMargin: m.LowerMargin,
		hsyncLen:    m.HSyncLen,
		vsyncLen:    m.VSyncLen,
		sync:        m.Sync,
		vmode:       m.VMode,
		flag:        m.Flag,
	}
}

// DisplayInfo queries the display attached to manager ix.
func (s *Session) DisplayInfo(ix int) (DisplayInfo, error) {
	fd, err := s.handle()
	if err != nil {
		return DisplayInfo{}, err
	}

	info := &sysDisplayInfo{ix: uint32(ix)}
	err = ioctl.Do(fd, IOCTLQueryDisplay, unsafe.Pointer(info))
	if err != nil {
		return DisplayInfo{}, s.queryError("query display", ix, err)
	}
	return info.info(), nil
}

// ModeDatabase returns at most maxEntries modes supported by the display
// attached to manager ix, in driver order. Requests above MaxModeDBLength
// are truncated silently, so callers must check the returned length.
func (s *Session) ModeDatabase(ix int, maxEntries int) ([]VideoMode, error) {
	fd, err := s.handle()
	if err != nil {
		return nil, err
	}

	if maxEntries <= 0 {
		return []VideoMode{}, nil
	}
	if maxEntries > MaxModeDBLength {
		maxEntries = MaxModeDBLength
	}

	query := &sysDisplayQuery{}
	query.info.ix = uint32(ix)
	query.info.modedbLen = uint32(maxEntries)

	err = ioctl.Do(fd, IOCTLQueryDisplay, unsafe.Pointer(&query.info))
	if err != nil {
		return nil, s.queryError("query mode database", ix, err)
	}

	return copyModes(query.modedb[:], int(query.info.modedbLen), maxEntries), nil
}

// copyModes converts the first reported entries of db, never more than
// maxEntries or len(db).
func copyModes(db []sysVideoMode, reported, maxEntries int) []VideoMode {
	n := max(min(reported, maxEntries, len(db)), 0)
	modes := make([]VideoMode, n)
	for i := range modes {
		modes[i] = db[i].mode()
	}
	return modes
}

// SetupDisplay programs mode on the display attached to manager ix.
func (s *Session) SetupDisplay(ix int, mode VideoMode) error {
	fd, err := s.handle()
	if err != nil {
		return err
	}

	data := &sysSetupDisplay{ix: uint32(ix), mode: newSysVideoMode(mode)}
	err = ioctl.Do(fd, IOCTLSetupDisplay, unsafe.Pointer(data))
	if err != nil {
		return s.submitError("setup display", ix, err)
	}

	s.logger.Info("display mode set",
		slog.Int("display", ix),
		slog.Int("xres", int(mode.XRes)),
		slog.Int("yres", int(mode.YRes)),
		slog.Int("refresh", int(mode.Refresh)))
	return nil
}
