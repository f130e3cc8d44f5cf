// Package compose plans, frame by frame, which layers of each display are
// shown on overlay pipelines and which are left to the GPU.
package compose

import (
	"sync"
	"time"

	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/config"
	"github.com/NeowayLabs/hwcomp/mode"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// idleForcedFrames is how many frames go to the GPU after an idle period.
const idleForcedFrames = 2

// Device is the planner of one compositor driver. It owns the attached
// displays. Hotplug and idle events may arrive from another goroutine than
// the one preparing frames.
type Device struct {
	mu     sync.Mutex
	logger *slog.Logger
	drv    hwcomp.Driver
	cfg    *config.Config

	limits hwcomp.PlatformLimits
	// pixel aspect of the primary display
	xpy float64

	displays *swiss.Map[int, *Display]

	syncID  uint32
	lastInt int // pipelines the primary display used last frame
	lastExt int // pipelines the external display used last frame

	idleForce int // frames left with GPU composition forced
	reset     bool
}

// New queries the platform limits and attaches the primary display.
// fb is the primary framebuffer, a zero size takes the display timings.
// A nil cfg uses config.Default.
func New(logger *slog.Logger, drv hwcomp.Driver, cfg *config.Config, fb Framebuffer) (*Device, error) {
	logger = hwcomp.LoggerOrNop(logger)
	if cfg == nil {
		cfg = config.Default()
	}

	limits, err := drv.PlatformLimits()
	if err != nil {
		return nil, errors.Wrap(err, "cannot retrieve platform limits")
	}

	info, err := drv.DisplayInfo(DisplayPrimary)
	if err != nil {
		return nil, errors.Wrap(err, "cannot attach primary display")
	}

	d := &Device{
		logger:   logger,
		drv:      drv,
		cfg:      cfg,
		limits:   limits,
		xpy:      pixelAspect(&info),
		displays: swiss.NewMap[int, *Display](2),
	}

	lcdW, lcdH := int(info.Timings.XRes), int(info.Timings.YRes)
	if fb.Width == 0 || fb.Height == 0 {
		fb.Width, fb.Height = lcdW, lcdH
	}
	if fb.Format == 0 {
		fb.Format = FormatBGRA8888
	}

	primary := &Display{
		Index:   DisplayPrimary,
		Role:    RolePrimary,
		Type:    displayType(&info),
		Manager: DisplayPrimary,
		Info:    info,
		FB:      fb,
		mode:    mode.NoMode,
	}

	dpi := lcdDPI
	if primary.IsHDMI() {
		dpi = hdmiDPI
	}
	primary.Configs = []DisplayConfig{newConfig(fb.Width, fb.Height, &info, dpi)}

	if lcdW > 0 && lcdH > 0 {
		primary.Transform = primaryTransform(fb.Width, fb.Height, lcdW, lcdH)
	} else {
		primary.Transform = Transform{Region: Rect{Right: fb.Width, Bottom: fb.Height}, Matrix: unitMatrix}
	}

	d.displays.Put(DisplayPrimary, primary)

	logger.Info("primary display attached",
		slog.String("type", primary.Type.String()),
		slog.Int("fb_width", fb.Width),
		slog.Int("fb_height", fb.Height),
		slog.Int("width", lcdW),
		slog.Int("height", lcdH),
		slog.Int("rotation", primary.Transform.Rotation*90),
		slog.Bool("scaling", primary.Transform.Scaling))
	return d, nil
}

func pixelAspect(info *hwcomp.DisplayInfo) float64 {
	t := &info.Timings
	if t.XRes == 0 || t.YRes == 0 || info.WidthMM == 0 || info.HeightMM == 0 {
		return 1
	}
	return float64(info.WidthMM) / float64(t.XRes) / float64(info.HeightMM) * float64(t.YRes)
}

func (d *Device) Limits() hwcomp.PlatformLimits { return d.limits }

func (d *Device) Config() *config.Config { return d.cfg }

// Display returns the display at index ix. The display must not be used
// while another goroutine prepares frames or handles hotplug events.
func (d *Device) Display(ix int) (*Display, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displays.Get(ix)
}

func (d *Device) primary() *Display {
	disp, _ := d.displays.Get(DisplayPrimary)
	return disp
}

func (d *Device) external() *Display {
	disp, ok := d.displays.Get(DisplayExternal)
	if !ok {
		return nil
	}
	return disp
}

// HandleHotplug attaches or detaches the external display. When the
// primary display is itself HDMI its mode is selected instead.
func (d *Device) HandleHotplug(connected bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	primary := d.primary()
	if primary.IsHDMI() {
		if !connected {
			primary.mode = mode.NoMode
			return nil
		}
		_, err := d.setBestMode(primary, primary.FB.Width, primary.FB.Height, true)
		if err != nil {
			d.logger.Error("failed to set HDMI mode", slog.String("error", err.Error()))
			return errors.Wrap(err, "primary display")
		}
		return nil
	}

	if !connected {
		d.detachExternal()
		return nil
	}
	return d.attachExternal()
}

func (d *Device) attachExternal() error {
	info, err := d.drv.DisplayInfo(DisplayExternal)
	if err != nil {
		return errors.Wrap(err, "cannot attach external display")
	}

	primary := d.primary()
	ext := &Display{
		Index:   DisplayExternal,
		Role:    RoleExternal,
		Type:    displayType(&info),
		Manager: DisplayExternal,
		Info:    info,
		mode:    mode.NoMode,
	}
	if !ext.IsHDMI() {
		d.logger.Warn("unknown type of external display", slog.String("channel", info.Channel.String()))
	}

	m := &d.cfg.Mirroring
	ext.Mirror = &MirroringState{
		Enabled:         m.Enabled,
		AvoidModeChange: m.AvoidModeChange,
		Modeset:         mode.Modeset{Index: mode.NoMode},
		Writeback:       WritebackMemToMem,
	}

	ext.Transform.Rotation, ext.Transform.HFlip = m.MirrorTransform(
		int(primary.Info.Timings.XRes), int(primary.Info.Timings.YRes))
	if r, ok := m.ClipRegion(); ok {
		ext.Transform.Region = Rect(r)
	} else {
		ext.Transform.Region = Rect{Right: primary.FB.Width, Bottom: primary.FB.Height}
	}
	ext.Transform.Matrix = unitMatrix

	region := ext.Transform.Region
	ext.Configs = []DisplayConfig{newConfig(region.W(), region.H(), &info, hdmiDPI)}
	ext.FB = Framebuffer{Width: region.W(), Height: region.H(), Format: primary.FB.Format}

	d.displays.Put(DisplayExternal, ext)

	d.logger.Info("clone region set",
		slog.Int("left", region.Left),
		slog.Int("top", region.Top),
		slog.Int("right", region.Right),
		slog.Int("bottom", region.Bottom))

	if ext.Mirror.Enabled {
		if err := d.setupMirroring(ext); err != nil {
			d.logger.Warn("cannot mirror primary display", slog.String("error", err.Error()))
			ext.Mirror.Enabled = false
		}
	}

	d.logger.Info("external display attached",
		slog.String("type", ext.Type.String()),
		slog.Bool("mirroring", ext.Mirror.Enabled),
		slog.Int("rotation", ext.Transform.Rotation*90),
		slog.Bool("hflip", ext.Transform.HFlip))
	return nil
}

func (d *Device) detachExternal() {
	if d.external() == nil {
		return
	}
	// pipelines it used are reclaimed with the next frame
	d.displays.Delete(DisplayExternal)
	d.logger.Info("external display detached", slog.Int("pipelines", d.lastExt))
}

// setBestMode programs the mode of disp that shows a xres x yres source best.
// The display is only reprogrammed when the mode changes.
func (d *Device) setBestMode(disp *Display, xres, yres int, avoidModeChange bool) (mode.Modeset, error) {
	db, err := mode.Query(d.drv, disp.Manager)
	if err != nil {
		return mode.Modeset{}, err
	}
	disp.modes = db

	ms, err := mode.Best(db, &d.limits, mode.Target{
		XRes:            uint32(xres),
		YRes:            uint32(yres),
		XPY:             d.xpy,
		Current:         disp.mode,
		AvoidModeChange: avoidModeChange,
	})
	if err != nil {
		return mode.Modeset{}, errors.Wrapf(err, "display %d", disp.Index)
	}

	if ms.Index != mode.NoMode && ms.Index != disp.mode {
		if err := d.drv.SetupDisplay(disp.Manager, ms.Mode); err != nil {
			return mode.Modeset{}, err
		}
		disp.mode = ms.Index
	}

	d.logger.Info("display mode selected",
		slog.Int("display", disp.Index),
		slog.Int("mode", ms.Index),
		slog.Int("xres", int(ms.Mode.XRes)),
		slog.Int("yres", int(ms.Mode.YRes)),
		slog.Int("refresh", int(ms.Mode.Refresh)),
		slog.Int("adj_xres", int(ms.AdjXRes)),
		slog.Int("adj_yres", int(ms.AdjYRes)))
	return ms, nil
}

// setupMirroring selects the output mode for the clone region and builds
// the matrix that maps the primary framebuffer onto it.
func (d *Device) setupMirroring(ext *Display) error {
	t := &ext.Transform
	w, h := t.Region.W(), t.Region.H()
	if t.Rotation&1 != 0 {
		w, h = h, w
	}

	cfg := ext.Config()
	xres, yres := cfg.XRes, cfg.YRes
	var widthMM, heightMM uint32

	if ext.IsHDMI() {
		ms, err := d.setBestMode(ext, w, h, ext.Mirror.AvoidModeChange)
		if err != nil {
			return err
		}
		ext.Mirror.Modeset = ms
		widthMM, heightMM = ms.Width, ms.Height

		if ms.Index != mode.NoMode {
			xres, yres = int(ms.Mode.XRes), int(ms.Mode.YRes)
		} else {
			xres, yres = int(ext.Info.Timings.XRes), int(ext.Info.Timings.YRes)
		}
		t.Scaling = xres != w || yres != h
	}

	adjW, adjH := externalMatrix(t, d.xpy, xres, yres, widthMM, heightMM)

	computed := ComputeCaptureMode(uint32(w), uint32(h), adjW, adjH)
	ext.Mirror.SelectWriteback(uint32(w), uint32(h), adjW, adjH, d.cfg.Writeback.ForceMemToMem)

	d.logger.Info("mirroring set up",
		slog.Int("xres", xres),
		slog.Int("yres", yres),
		slog.Int("adj_xres", int(adjW)),
		slog.Int("adj_yres", int(adjH)),
		slog.String("writeback", ext.Mirror.Writeback.String()),
		slog.String("writeback_computed", computed.String()))
	return nil
}

// IdleTimeout is how long without frames before Idle should be called,
// 0 when idle GPU forcing is disabled.
func (d *Device) IdleTimeout() time.Duration {
	return time.Duration(d.cfg.Policy.IdleTimeoutMS) * time.Millisecond
}

// Idle forces GPU composition for the next frames when the primary display
// keeps more than one pipeline busy, so they can be released. It reports
// whether the display server has to be asked for a new frame.
func (d *Device) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg.Policy.IdleTimeoutMS == 0 || d.lastInt <= 1 || d.idleForce > 0 {
		return false
	}
	d.idleForce = idleForcedFrames
	d.logger.Debug("idle, forcing GPU composition", slog.Int("pipelines", d.lastInt))
	return true
}

func (d *Device) forced() bool {
	return d.cfg.Policy.ForceGPU || d.idleForce > 0
}

// Commit submits the requests of plans and ends the frame. Every request
// is submitted even when one fails.
func (d *Device) Commit(plans []Plan) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.reset {
		// clear whatever the bootloader left on the primary display
		err := d.drv.Submit(&hwcomp.Request{Managers: []hwcomp.ManagerInfo{{Index: DisplayPrimary}}})
		if err != nil {
			d.logger.Warn("failed to reset primary display", slog.String("error", err.Error()))
		}
		d.reset = true
	}

	var errs error
	for i := range plans {
		if plans[i].Request == nil {
			continue
		}
		if err := d.drv.Submit(plans[i].Request); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "display %d", plans[i].Display))
		}
	}

	d.frameDone()
	return errs
}

// FrameDone ends a frame that was not committed.
func (d *Device) FrameDone() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frameDone()
}

func (d *Device) frameDone() {
	if d.idleForce > 0 {
		d.idleForce--
	}
}
