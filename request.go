package hwcomp

import (
	"unsafe"

	"github.com/NeowayLabs/hwcomp/ioctl"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

const (
	MaxManagers  = 3
	MaxPipelines = 4

	// PipelineGFX is the only pipeline without a scaler.
	PipelineGFX    = 0
	PipelineVideo1 = 1
)

const setupModeDisplay = 2

// Pixel formats understood by the overlay pipelines.
const (
	ColorRGB16  ColorMode = 1 << 6
	ColorRGB24U ColorMode = 1 << 7
	ColorARGB32 ColorMode = 1 << 11
	ColorNV12   ColorMode = 1 << 14
)

const (
	// AddressLayer makes Buffer an index into the frame's buffer list.
	AddressLayer Addressing = iota
	// AddressPipeline makes Buffer the index of the pipeline to clone.
	AddressPipeline
)

type (
	ColorMode  uint32
	Addressing uint32

	sysRect struct {
		x, y int32
		w, h uint32
	}

	sysOverlayConfig struct {
		width, height uint16
		stride        uint32
		crop, win     sysRect
		rotation      uint8
		mirror        uint8
		enabled       uint8
		zorder        uint8
		colorMode     uint32
		globalAlpha   uint8
		preMultAlpha  uint8
		_             [2]uint8
		ix            uint32
		mgrIx         uint32
	}

	sysOverlayInfo struct {
		cfg        sysOverlayConfig
		addressing uint32
		ba         uint32
	}

	sysDispcData struct {
		syncID  uint32
		mode    uint32
		numOvls uint16
		numMgrs uint16
		mgrs    [MaxManagers]sysManagerInfo
		ovls    [MaxPipelines]sysOverlayInfo
	}

	// Window is a rectangle in x, y, width, height form.
	Window struct {
		X, Y int
		W, H int
	}

	// ManagerInfo is the descriptor of one display manager taking part in
	// a composition.
	ManagerInfo struct {
		Index         int
		AlphaBlending bool
		SwapRB        bool
	}

	// PipelineSetup configures one overlay pipeline.
	PipelineSetup struct {
		Index   int // pipeline
		Manager int
		ZOrder  int
		Enabled bool

		ColorMode     ColorMode
		Width, Height int
		Stride        int

		Crop   Window // source, buffer coordinates
		Window Window // destination, display coordinates

		Rotation     uint8 // 90 degree steps
		Mirror       bool
		PreMultAlpha bool
		GlobalAlpha  uint8

		Addressing Addressing
		Buffer     int
	}

	// Request is a composition submitted to the driver in one call.
	// All managers listed commit atomically.
	Request struct {
		SyncID    uint32
		Managers  []ManagerInfo
		Pipelines []PipelineSetup
	}
)

func (c ColorMode) String() string {
	switch c {
	case ColorRGB16:
		return "RGB565"
	case ColorRGB24U:
		return "xRGB32"
	case ColorARGB32:
		return "ARGB32"
	case ColorNV12:
		return "NV12"
	}
	return "unknown"
}

func (w Window) Area() int { return w.W * w.H }

// AppendManager adds a manager descriptor with alpha blending enabled.
func (r *Request) AppendManager(ix int, swapRB bool) {
	r.Managers = append(r.Managers, ManagerInfo{
		Index:         ix,
		AlphaBlending: true,
		SwapRB:        swapRB,
	})
}

// Reset clears r for a new frame, keeping its backing arrays.
func (r *Request) Reset(syncID uint32) {
	r.SyncID = syncID
	r.Managers = r.Managers[:0]
	r.Pipelines = r.Pipelines[:0]
}

func newSysRect(w Window) sysRect {
	return sysRect{x: int32(w.X), y: int32(w.Y), w: uint32(max(w.W, 0)), h: uint32(max(w.H, 0))}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func (r *Request) sys() (*sysDispcData, error) {
	if len(r.Managers) > MaxManagers {
		return nil, errors.Newf("%d managers in request, at most %d supported", len(r.Managers), MaxManagers)
	}
	if len(r.Pipelines) > MaxPipelines {
		return nil, errors.Newf("%d pipelines in request, at most %d supported", len(r.Pipelines), MaxPipelines)
	}

	data := &sysDispcData{
		syncID:  r.SyncID,
		mode:    setupModeDisplay,
		numOvls: uint16(len(r.Pipelines)),
		numMgrs: uint16(len(r.Managers)),
	}

	for i, m := range r.Managers {
		data.mgrs[i] = sysManagerInfo{
			ix:            uint32(m.Index),
			alphaBlending: boolByte(m.AlphaBlending),
			swapRB:        boolByte(m.SwapRB),
		}
	}

	for i, p := range r.Pipelines {
		data.ovls[i] = sysOverlayInfo{
			cfg: sysOverlayConfig{
				width:        uint16(p.Width),
				height:       uint16(p.Height),
				stride:       uint32(p.Stride),
				crop:         newSysRect(p.Crop),
				win:          newSysRect(p.Window),
				rotation:     p.Rotation & 3,
				mirror:       boolByte(p.Mirror),
				enabled:      boolByte(p.Enabled),
				zorder:       uint8(p.ZOrder),
				colorMode:    uint32(p.ColorMode),
				globalAlpha:  p.GlobalAlpha,
				preMultAlpha: boolByte(p.PreMultAlpha),
				ix:           uint32(p.Index),
				mgrIx:        uint32(p.Manager),
			},
			addressing: uint32(p.Addressing),
			ba:         uint32(p.Buffer),
		}
	}
	return data, nil
}

// Submit programs the managers and pipelines of req.
func (s *Session) Submit(req *Request) error {
	fd, err := s.handle()
	if err != nil {
		return err
	}

	data, err := req.sys()
	if err != nil {
		return errors.Mark(err, ErrSubmitFailed)
	}

	err = ioctl.Do(fd, IOCTLSetupDispc, unsafe.Pointer(data))
	if err != nil {
		display := NoDisplay
		if len(req.Managers) > 0 {
			display = req.Managers[0].Index
		}
		return s.submitError("setup dispc", display, err)
	}

	s.logger.Debug("composition submitted",
		slog.Int("sync", int(req.SyncID)),
		slog.Int("managers", len(req.Managers)),
		slog.Int("pipelines", len(req.Pipelines)))
	return nil
}
